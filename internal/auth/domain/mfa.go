package domain

// MFASetupResponse carries the freshly generated (not yet active) TOTP
// secret and the provisioning URI an authenticator app enrolls from.
type MFASetupResponse struct {
	Secret          string `json:"secret"`           // Base32 encoded secret
	ProvisioningURI string `json:"provisioning_uri"` // otpauth:// URL for QR rendering
	Issuer          string `json:"issuer"`
	Account         string `json:"account"` // account label (email)
}

// MFAStatus reports the current MFA posture of an account.
type MFAStatus struct {
	Enabled  bool   `json:"mfa_enabled"`
	Enforced bool   `json:"mfa_enforced"` // derived from roles, never stored
	Message  string `json:"message,omitempty"`
}
