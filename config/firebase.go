package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ServiceAccount holds essential fields from the Firebase JSON key.
type ServiceAccount struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// FirebaseEnabled reports whether push notifications are configured.
func FirebaseEnabled() bool {
	return AppConfig.FirebaseCredentialsFile != ""
}

// LoadServiceAccount reads and sanity checks the configured key file.
func LoadServiceAccount() (*ServiceAccount, error) {
	raw, err := os.ReadFile(AppConfig.FirebaseCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read firebase credentials: %w", err)
	}
	var sa ServiceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("parse firebase credentials: %w", err)
	}
	if sa.ProjectID == "" || sa.ClientEmail == "" {
		return nil, fmt.Errorf("firebase credentials missing project_id or client_email")
	}
	return &sa, nil
}
