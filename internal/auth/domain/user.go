package domain

import "time"

// User is a registered mailbox owner. HistoryID is the Gmail history
// watermark: every change at or before it has already been processed.
type User struct {
	ID                    uint      `json:"user_id" gorm:"primaryKey;column:user_id"`
	Email                 string    `json:"email" gorm:"uniqueIndex;not null"`
	Name                  string    `json:"name"`
	EncryptedRefreshToken string    `json:"-" gorm:"column:encrypted_refresh_token"`
	HistoryID             string    `json:"history_id" gorm:"column:history_id"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// HasRefreshToken reports whether the user can be authorised without
// interactive consent.
func (u *User) HasRefreshToken() bool {
	return u.EncryptedRefreshToken != ""
}

// UserAttribute names one readable user field. The set is closed: only the
// values declared below map to a column.
type UserAttribute int

const (
	AttrRefreshToken UserAttribute = iota + 1
	AttrHistoryID
	AttrUserID
	AttrName
)

var attributeColumns = map[UserAttribute]string{
	AttrRefreshToken: "encrypted_refresh_token",
	AttrHistoryID:    "history_id",
	AttrUserID:       "user_id",
	AttrName:         "name",
}

// Column returns the storage column for the attribute, or false when the
// attribute is not part of the allowed set.
func (a UserAttribute) Column() (string, bool) {
	col, ok := attributeColumns[a]
	return col, ok
}

func (a UserAttribute) String() string {
	if col, ok := attributeColumns[a]; ok {
		return col
	}
	return "unknown"
}
