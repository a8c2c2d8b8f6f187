package proto

import "google.golang.org/protobuf/encoding/protowire"

type LoginRequest struct {
	Email    string // 1
	Password string // 2
}

func (m *LoginRequest) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Email)
	b = appendString(b, 2, m.Password)
	return b, nil
}

func (m *LoginRequest) UnmarshalWire(b []byte) error {
	*m = LoginRequest{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeString(typ, b, &m.Email)
		case 2:
			return consumeString(typ, b, &m.Password)
		}
		return -1
	})
}

// TokenResponse is returned by Login and RefreshToken.
type TokenResponse struct {
	AccessToken  string // 1
	RefreshToken string // 2
}

func (m *TokenResponse) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.AccessToken)
	b = appendString(b, 2, m.RefreshToken)
	return b, nil
}

func (m *TokenResponse) UnmarshalWire(b []byte) error {
	*m = TokenResponse{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeString(typ, b, &m.AccessToken)
		case 2:
			return consumeString(typ, b, &m.RefreshToken)
		}
		return -1
	})
}

type RefreshTokenRequest struct {
	RefreshToken string // 1
}

func (m *RefreshTokenRequest) MarshalWire() ([]byte, error) {
	return appendString(nil, 1, m.RefreshToken), nil
}

func (m *RefreshTokenRequest) UnmarshalWire(b []byte) error {
	*m = RefreshTokenRequest{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 {
			return consumeString(typ, b, &m.RefreshToken)
		}
		return -1
	})
}

// LogoutRequest carries the refresh token to revoke. The access token, if
// any, travels in the access_token metadata entry.
type LogoutRequest struct {
	RefreshToken string // 1
}

func (m *LogoutRequest) MarshalWire() ([]byte, error) {
	return appendString(nil, 1, m.RefreshToken), nil
}

func (m *LogoutRequest) UnmarshalWire(b []byte) error {
	*m = LogoutRequest{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 {
			return consumeString(typ, b, &m.RefreshToken)
		}
		return -1
	})
}

type LogoutResponse struct{}

func (m *LogoutResponse) MarshalWire() ([]byte, error) { return nil, nil }

func (m *LogoutResponse) UnmarshalWire(b []byte) error {
	return unmarshalFields(b, func(protowire.Number, protowire.Type, []byte) int { return -1 })
}

type WhoAmIRequest struct{}

func (m *WhoAmIRequest) MarshalWire() ([]byte, error) { return nil, nil }

func (m *WhoAmIRequest) UnmarshalWire(b []byte) error {
	return unmarshalFields(b, func(protowire.Number, protowire.Type, []byte) int { return -1 })
}

// WhoAmIResponse describes the principal behind the presented access token.
type WhoAmIResponse struct {
	UserID         string // 1
	Email          string // 2
	OrganizationID string // 3
	Role           string // 4
	ExpiresAt      int64  // 5, unix seconds
	TokenID        string // 6
}

func (m *WhoAmIResponse) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.UserID)
	b = appendString(b, 2, m.Email)
	b = appendString(b, 3, m.OrganizationID)
	b = appendString(b, 4, m.Role)
	b = appendInt64(b, 5, m.ExpiresAt)
	b = appendString(b, 6, m.TokenID)
	return b, nil
}

func (m *WhoAmIResponse) UnmarshalWire(b []byte) error {
	*m = WhoAmIResponse{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeString(typ, b, &m.UserID)
		case 2:
			return consumeString(typ, b, &m.Email)
		case 3:
			return consumeString(typ, b, &m.OrganizationID)
		case 4:
			return consumeString(typ, b, &m.Role)
		case 5:
			return consumeInt64(typ, b, &m.ExpiresAt)
		case 6:
			return consumeString(typ, b, &m.TokenID)
		}
		return -1
	})
}
