package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"Community_Feed/internal/model"
	"Community_Feed/internal/repository/store"
)

type PostService struct {
	posts       *store.PostRepository
	likes       *store.LikeRepository
	comments    *CommentService
	leaderboard leaderboardInvalidator
}

// NewPostService leaderboard 可为 nil
func NewPostService(posts *store.PostRepository, likes *store.LikeRepository, comments *CommentService,
	leaderboard leaderboardInvalidator) *PostService {
	return &PostService{posts: posts, likes: likes, comments: comments, leaderboard: leaderboard}
}

func (s *PostService) CreatePost(ctx context.Context, authorID uint64, content string) (*PostView, error) {
	if authorID == 0 {
		return nil, ErrUnauthenticated
	}
	verr := &ValidationError{}
	checkContent(verr, content, model.PostContentMax)
	if err := verr.Err(); err != nil {
		return nil, err
	}

	post := &model.Post{AuthorID: authorID, Content: content}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, wrap("create post", err)
	}
	// 回读带上作者信息
	created, err := s.posts.FindByID(ctx, post.ID)
	if err != nil {
		return nil, wrap("reload post", err)
	}
	v := postView(created, false, 0)
	return &v, nil
}

// ListPosts 全量列表，评论数与是否点赞各一次批量查询
func (s *PostService) ListPosts(ctx context.Context, viewerID uint64) ([]PostView, error) {
	list, err := s.posts.List(ctx)
	if err != nil {
		return nil, wrap("list posts", err)
	}
	ids := make([]uint64, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	counts, err := s.posts.CommentCounts(ctx, ids)
	if err != nil {
		return nil, wrap("count comments", err)
	}
	liked, err := s.likes.LikedIDs(ctx, model.TargetPost, viewerID, ids)
	if err != nil {
		return nil, wrap("load post likes", err)
	}

	out := make([]PostView, 0, len(list))
	for i := range list {
		out = append(out, postView(&list[i], liked[list[i].ID], counts[list[i].ID]))
	}
	return out, nil
}

// GetPost 帖子详情 + 评论森林
func (s *PostService) GetPost(ctx context.Context, id, viewerID uint64) (*PostDetail, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, wrap("get post", err)
	}
	liked, err := s.likes.LikedIDs(ctx, model.TargetPost, viewerID, []uint64{id})
	if err != nil {
		return nil, wrap("load post likes", err)
	}
	roots, index, err := s.comments.tree(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}
	return &PostDetail{
		PostView: postView(post, liked[id], int64(len(index))),
		Comments: roots,
	}, nil
}

// DeletePost 仅作者可删，评论与点赞级联删除，karma 随之减少
func (s *PostService) DeletePost(ctx context.Context, id, userID uint64) error {
	if userID == 0 {
		return ErrUnauthenticated
	}
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return wrap("get post", err)
	}
	if post.AuthorID != userID {
		return ErrForbidden
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return wrap("delete post", err)
	}
	if s.leaderboard != nil {
		s.leaderboard.Invalidate(ctx)
	}
	return nil
}

func checkContent(v *ValidationError, content string, max int) {
	switch {
	case strings.TrimSpace(content) == "":
		v.Add("content", "This field may not be blank.")
	case utf8.RuneCountInString(content) > max:
		v.Add("content", fmt.Sprintf("Ensure this field has no more than %d characters.", max))
	}
}
