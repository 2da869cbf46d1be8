package model

import "time"

type User struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	PhoneNumber string     `json:"phoneNumber,omitempty"`
	Password    string     `json:"-"`
	Role        string     `json:"role,omitempty"`
	Company     string     `json:"company,omitempty"`
	BirthDay    *time.Time `json:"birthDay,omitempty"`
	Avatar      string     `json:"avatar,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
