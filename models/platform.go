package models

// Platform is a VOD streaming service users can subscribe to.
type Platform struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// UserPlatform links a user to a platform they subscribe to.
type UserPlatform struct {
	UserID     string `json:"userId"`
	PlatformID int64  `json:"platformId"`
}
