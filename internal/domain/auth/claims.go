package auth

import (
	"encoding/json"
	"fmt"
)

// Claims is the caller identity carried by an access token.
type Claims struct {
	UserID    int64
	CompanyID int64
	IsAdmin   bool
}

// ClaimsFromMap reads user_id, company_id and is_admin from decoded token claims.
// A missing or non-positive company_id yields ErrCompanyIDRequired.
func ClaimsFromMap(m map[string]any) (Claims, error) {
	userID, err := int64Claim(m, "user_id")
	if err != nil || userID <= 0 {
		return Claims{}, ErrInvalidToken
	}

	companyID, err := int64Claim(m, "company_id")
	if err != nil || companyID <= 0 {
		return Claims{}, ErrCompanyIDRequired
	}

	isAdmin, _ := m["is_admin"].(bool)

	return Claims{UserID: userID, CompanyID: companyID, IsAdmin: isAdmin}, nil
}

func int64Claim(m map[string]any, key string) (int64, error) {
	switch v := m[key].(type) {
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("claim %s is not an integer", key)
		}
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case nil:
		return 0, fmt.Errorf("claim %s missing", key)
	default:
		return 0, fmt.Errorf("claim %s has type %T", key, v)
	}
}
