package service

import (
	"context"
	"errors"
	"fmt"

	"Community_Feed/internal/model"
	"Community_Feed/internal/repository/store"

	"gorm.io/gorm"
)

type CommentService struct {
	comments    *store.CommentRepository
	posts       *store.PostRepository
	likes       *store.LikeRepository
	leaderboard leaderboardInvalidator
}

// NewCommentService leaderboard 可为 nil
func NewCommentService(comments *store.CommentRepository, posts *store.PostRepository, likes *store.LikeRepository,
	leaderboard leaderboardInvalidator) *CommentService {
	return &CommentService{comments: comments, posts: posts, likes: likes, leaderboard: leaderboard}
}

type CreateCommentInput struct {
	PostID   uint64
	ParentID *uint64
	Content  string
}

// GetTree 一次查询取全部评论 + 一次查询取点赞集合，内存建树
func (s *CommentService) GetTree(ctx context.Context, postID, viewerID uint64) ([]*CommentNode, error) {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return nil, wrap("get post", err)
	}
	roots, _, err := s.tree(ctx, postID, viewerID)
	return roots, err
}

// ListComments flat=true 时按先序返回扁平列表，层级看 level/parent
func (s *CommentService) ListComments(ctx context.Context, postID, viewerID uint64, flat bool) ([]*CommentNode, error) {
	roots, err := s.GetTree(ctx, postID, viewerID)
	if err != nil || !flat {
		return roots, err
	}
	ordered := Flatten(roots)
	out := make([]*CommentNode, 0, len(ordered))
	for _, n := range ordered {
		leaf := *n
		leaf.Children = []*CommentNode{}
		out = append(out, &leaf)
	}
	return out, nil
}

func (s *CommentService) tree(ctx context.Context, postID, viewerID uint64) ([]*CommentNode, map[uint64]*CommentNode, error) {
	rows, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, nil, wrap("list comments", err)
	}
	liked := map[uint64]bool{}
	if viewerID != 0 && len(rows) > 0 {
		if liked, err = s.likes.LikedCommentsInPost(ctx, viewerID, postID); err != nil {
			return nil, nil, wrap("load comment likes", err)
		}
	}
	roots, index := BuildForest(rows, liked)
	return roots, index, nil
}

// GetComment 单条评论及其子树
func (s *CommentService) GetComment(ctx context.Context, id, viewerID uint64) (*CommentNode, error) {
	c, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return nil, wrap("get comment", err)
	}
	_, index, err := s.tree(ctx, c.PostID, viewerID)
	if err != nil {
		return nil, err
	}
	node, ok := index[id]
	if !ok {
		return nil, ErrNotFound
	}
	return node, nil
}

func (s *CommentService) CreateComment(ctx context.Context, authorID uint64, in CreateCommentInput) (*CommentNode, error) {
	if authorID == 0 {
		return nil, ErrUnauthenticated
	}
	verr := &ValidationError{}
	checkContent(verr, in.Content, model.CommentContentMax)

	if in.PostID == 0 {
		verr.Add("post", "This field is required.")
	} else if _, err := s.posts.FindByID(ctx, in.PostID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wrap("get post", err)
		}
		verr.Add("post", invalidPK(in.PostID))
	}

	if in.ParentID != nil {
		parent, err := s.comments.FindByID(ctx, *in.ParentID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			verr.Add("parent", invalidPK(*in.ParentID))
		case err != nil:
			return nil, wrap("get parent comment", err)
		case parent.PostID != in.PostID:
			verr.Add("parent", "Parent comment must belong to the same post.")
		}
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	c := &model.Comment{
		PostID:   in.PostID,
		AuthorID: authorID,
		ParentID: in.ParentID,
		Content:  in.Content,
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, wrap("create comment", err)
	}
	return s.GetComment(ctx, c.ID, authorID)
}

// DeleteComment 仅作者可删，子评论级联删除
func (s *CommentService) DeleteComment(ctx context.Context, id, userID uint64) error {
	if userID == 0 {
		return ErrUnauthenticated
	}
	c, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return wrap("get comment", err)
	}
	if c.AuthorID != userID {
		return ErrForbidden
	}
	if err := s.comments.Delete(ctx, id); err != nil {
		return wrap("delete comment", err)
	}
	if s.leaderboard != nil {
		s.leaderboard.Invalidate(ctx)
	}
	return nil
}

func invalidPK(id uint64) string {
	return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id)
}
