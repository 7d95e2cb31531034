package actual

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"net/http"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters matching the Actual client apps.
const (
	keyIterations = 10000
	keyLength     = 32
)

// decryptFile unwraps an end-to-end encrypted budget archive. The key is
// derived from the user's encryption password and the per-key salt reported
// by the server; the blob itself is AES-256-GCM with the auth tag delivered
// separately in the file's encrypt metadata.
func (c *Client) decryptFile(ctx context.Context, token, fileID string, blob []byte, meta *encryptMeta) ([]byte, error) {
	if c.opts.EncryptionPassword == "" {
		return nil, fmt.Errorf("%w: file is encrypted and no encryption password is configured", ErrInvalidFile)
	}
	if meta.Algorithm != "" && meta.Algorithm != "aes-256-gcm" {
		return nil, fmt.Errorf("%w: unsupported encryption algorithm %q", ErrInvalidFile, meta.Algorithm)
	}

	var keyResp userKeyResponse
	err := c.doJSON(ctx, http.MethodPost, "/sync/user-get-key", token, userKeyRequest{FileID: fileID}, &keyResp)
	if err != nil {
		return nil, err
	}

	salt, err := base64.StdEncoding.DecodeString(keyResp.Data.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: bad key salt: %v", ErrInvalidFile, err)
	}
	key := pbkdf2.Key([]byte(c.opts.EncryptionPassword), salt, keyIterations, keyLength, sha512.New)

	iv, err := base64.StdEncoding.DecodeString(meta.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: bad iv: %v", ErrInvalidFile, err)
	}
	authTag, err := base64.StdEncoding.DecodeString(meta.AuthTag)
	if err != nil {
		return nil, fmt.Errorf("%w: bad auth tag: %v", ErrInvalidFile, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, len(iv))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	// Go expects ciphertext||tag in one buffer.
	plain, err := gcm.Open(nil, iv, append(blob, authTag...), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decryption failed (wrong encryption password?)", ErrInvalidFile)
	}
	return plain, nil
}
