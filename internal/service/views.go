package service

import (
	"time"

	"Community_Feed/internal/model"
)

type AuthorView struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

func authorView(u model.User) AuthorView {
	return AuthorView{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL, CreatedAt: u.CreatedAt}
}

type UserView struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Bio       string    `json:"bio"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

func userView(u *model.User) UserView {
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Bio:       u.Bio,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
	}
}

type PostView struct {
	ID           uint64     `json:"id"`
	Author       AuthorView `json:"author"`
	Content      string     `json:"content"`
	LikeCount    int64      `json:"like_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	UserHasLiked bool       `json:"user_has_liked"`
	CommentCount int64      `json:"comment_count"`
}

func postView(p *model.Post, liked bool, comments int64) PostView {
	return PostView{
		ID:           p.ID,
		Author:       authorView(p.Author),
		Content:      p.Content,
		LikeCount:    p.LikeCount,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		UserHasLiked: liked,
		CommentCount: comments,
	}
}

// PostDetail 详情页额外带完整评论森林
type PostDetail struct {
	PostView
	Comments []*CommentNode `json:"comments"`
}

type LikeResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

type LeaderboardEntry struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Karma24h  int64  `json:"karma_24h"`
	Rank      int    `json:"rank"`
}
