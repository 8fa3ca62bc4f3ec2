package types

import "time"

type UserResponse struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	CreatedTime time.Time `json:"created_time"`
}
