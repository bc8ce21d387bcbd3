package domain

import "time"

// DefaultAvatar is the colour assigned to users created without one.
const DefaultAvatar = "#64748b"

// User is a team member tasks can be assigned to.
type User struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Avatar string `json:"avatar"`
}

type NewUser struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

type UserPatch struct {
	ID     *int64  `json:"id,omitempty"`
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Role   *string `json:"role,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

func (patch UserPatch) Apply(u *User) {
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.Avatar != nil {
		u.Avatar = *patch.Avatar
	}
}

// Comment is a note left on a task. Authors and tasks are referenced by id
// only.
type Comment struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"taskId"`
	AuthorID  int64     `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type NewComment struct {
	TaskID   int64  `json:"taskId"`
	AuthorID int64  `json:"authorId"`
	Content  string `json:"content"`
}

type CommentPatch struct {
	ID       *int64  `json:"id,omitempty"`
	TaskID   *int64  `json:"taskId,omitempty"`
	AuthorID *int64  `json:"authorId,omitempty"`
	Content  *string `json:"content,omitempty"`
}

func (patch CommentPatch) Apply(c *Comment) {
	if patch.TaskID != nil {
		c.TaskID = *patch.TaskID
	}
	if patch.AuthorID != nil {
		c.AuthorID = *patch.AuthorID
	}
	if patch.Content != nil {
		c.Content = *patch.Content
	}
}
