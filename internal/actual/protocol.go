package actual

// Wire types for the Actual sync server's JSON envelope. Every response wraps
// its payload in {"status": "ok"|"error", "data": ...}.

const (
	headerToken  = "X-ACTUAL-TOKEN"
	headerFileID = "X-ACTUAL-FILE-ID"

	statusOK = "ok"
)

type loginRequest struct {
	LoginMethod string `json:"loginMethod"`
	Password    string `json:"password"`
}

type loginResponse struct {
	Status string `json:"status"`
	Data   struct {
		Token string `json:"token"`
	} `json:"data"`
}

type validateResponse struct {
	Status string `json:"status"`
	Data   struct {
		Validated bool `json:"validated"`
	} `json:"data"`
}

type userFile struct {
	Deleted      int    `json:"deleted"`
	FileID       string `json:"fileId"`
	GroupID      string `json:"groupId"`
	Name         string `json:"name"`
	EncryptKeyID string `json:"encryptKeyId"`
}

type listFilesResponse struct {
	Status string     `json:"status"`
	Data   []userFile `json:"data"`
}

// encryptMeta describes how a downloaded file blob was encrypted.
type encryptMeta struct {
	KeyID     string `json:"keyId"`
	Algorithm string `json:"algorithm"`
	IV        string `json:"iv"`      // base64
	AuthTag   string `json:"authTag"` // base64
}

type fileInfoResponse struct {
	Status string `json:"status"`
	Data   struct {
		Name        string       `json:"name"`
		FileID      string       `json:"fileId"`
		EncryptMeta *encryptMeta `json:"encryptMeta"`
	} `json:"data"`
}

type userKeyRequest struct {
	FileID string `json:"fileId"`
}

type userKeyResponse struct {
	Status string `json:"status"`
	Data   struct {
		ID   string `json:"id"`
		Salt string `json:"salt"`
	} `json:"data"`
}

// fileMetadata is the metadata.json shipped inside the budget archive.
type fileMetadata struct {
	ID         string `json:"id"`
	BudgetName string `json:"budgetName"`
	GroupID    string `json:"groupId"`
}
