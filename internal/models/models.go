package models

import "time"

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleUser    = "user"
)

const (
	RoleEditorMember = "editor"
	RoleViewerMember = "viewer"
)

const (
	VisibilityPrivate = "private"
	VisibilityShared  = "shared"
	VisibilityPublic  = "public"
)

type User struct {
	ID           uint       `gorm:"primaryKey;autoIncrement"  json:"id"`
	Username     string     `gorm:"uniqueIndex;not null"      json:"username"`
	Email        string     `gorm:"uniqueIndex;not null"      json:"email"`
	PasswordHash string     `gorm:"not null"                  json:"-"`
	Role         string     `gorm:"not null;default:user"     json:"role"`
	IsActive     bool       `gorm:"not null;default:true"     json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Move struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string    `gorm:"not null"                  json:"name"`
	Description string    `json:"description"`
	Style       string    `gorm:"index"                     json:"style"`
	Difficulty  string    `json:"difficulty"`
	GifURL      string    `json:"gif_url"`
	CreatedBy   uint      `gorm:"index"                     json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type List struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"                             json:"id"`
	OwnerID    uint      `gorm:"not null;uniqueIndex:idx_lists_owner_name,priority:1" json:"owner_id"`
	Name       string    `gorm:"not null;uniqueIndex:idx_lists_owner_name,priority:2" json:"name"`
	Visibility string    `gorm:"not null;default:private"                             json:"visibility"`
	ShareToken string    `gorm:"index"                                                json:"share_token,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type ListMember struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"                        json:"id"`
	ListID uint   `gorm:"not null;uniqueIndex:idx_list_member,priority:1" json:"list_id"`
	UserID uint   `gorm:"not null;uniqueIndex:idx_list_member,priority:2" json:"user_id"`
	Role   string `gorm:"not null"                                        json:"role"`
}

type ListMove struct {
	ID      uint      `gorm:"primaryKey;autoIncrement"                      json:"id"`
	ListID  uint      `gorm:"not null;uniqueIndex:idx_list_move,priority:1" json:"list_id"`
	MoveID  uint      `gorm:"not null;uniqueIndex:idx_list_move,priority:2" json:"move_id"`
	AddedBy uint      `gorm:"not null"                                      json:"added_by"`
	AddedAt time.Time `gorm:"autoCreateTime"                                json:"added_at"`
}

type Favorite struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                      json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_move,priority:1" json:"user_id"`
	MoveID    uint      `gorm:"not null;uniqueIndex:idx_user_move,priority:2" json:"move_id"`
	CreatedAt time.Time `json:"created_at"`
}
