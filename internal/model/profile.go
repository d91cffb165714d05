package model

import "time"

// Profile mirrors the `profiles` table (one row per user).  Optional
// columns are pointers so an unset value stays NULL.
type Profile struct {
    UserID       uint64     `json:"user_id"`
    FirstName    string     `json:"first_name"`
    LastName     string     `json:"last_name"`
    Gender       *string    `json:"gender,omitempty"`
    DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
    Religion     *string    `json:"religion,omitempty"`
    MotherTongue *string    `json:"mother_tongue,omitempty"`
    City         *string    `json:"city,omitempty"`
    Occupation   *string    `json:"occupation,omitempty"`
    HeightCM     *int       `json:"height_cm,omitempty"`
    About        *string    `json:"about,omitempty"`
    UpdatedAt    time.Time  `json:"updated_at"`
}
