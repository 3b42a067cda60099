package helpers

// EnhancedClaims is the token plus what the profile and operator rows add.
type EnhancedClaims struct {
	*CustomClaims
	Role        string `json:"role"`
	UserID      string `json:"id"`
	Email       string `json:"email,omitempty"`
	Fullname    string `json:"fullname,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	OperatorID  string `json:"operator_id,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	AccessToken string `json:"-"`
}

// Helper methods for role checking
func (ec *EnhancedClaims) IsAdmin() bool {
	return ec.Role == "admin"
}

func (ec *EnhancedClaims) IsOperator() bool {
	return ec.Role == "operator" && ec.OperatorID != ""
}

func (ec *EnhancedClaims) GetSafeRole() string {
	if ec.Role == "" {
		return "guest"
	}
	return ec.Role
}

// ActingOperator resolves which operator a request works on. Admins may act
// for any operator through requested; operators always get their own.
func (ec *EnhancedClaims) ActingOperator(requested string) (string, bool) {
	if ec.IsAdmin() && requested != "" {
		return requested, true
	}
	if ec.IsOperator() {
		return ec.OperatorID, true
	}
	return "", false
}
