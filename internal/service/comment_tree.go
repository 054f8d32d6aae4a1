package service

import (
	"sort"
	"time"

	"Community_Feed/internal/model"
)

// CommentNode 评论树节点，Depth 由树中位置推导
type CommentNode struct {
	ID           uint64         `json:"id"`
	PostID       uint64         `json:"post"`
	Author       AuthorView     `json:"author"`
	Content      string         `json:"content"`
	LikeCount    int64          `json:"like_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	ParentID     *uint64        `json:"parent"`
	Depth        int            `json:"level"`
	UserHasLiked bool           `json:"user_has_liked"`
	Children     []*CommentNode `json:"children"`
}

// BuildForest 由同一帖子的扁平评论构建森林，同级按 (created_at, id) 升序。
// 父评论不在 rows 中的孤儿连同其子树一并丢弃。返回根节点与 id 索引。
func BuildForest(rows []model.Comment, liked map[uint64]bool) ([]*CommentNode, map[uint64]*CommentNode) {
	less := func(a, b model.Comment) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	}
	// 仓储层已按序返回时跳过排序
	if !sort.SliceIsSorted(rows, func(i, j int) bool { return less(rows[i], rows[j]) }) {
		sorted := make([]model.Comment, len(rows))
		copy(sorted, rows)
		sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
		rows = sorted
	}

	roots := make([]*CommentNode, 0)
	children := make(map[uint64][]*CommentNode, len(rows))
	for i := range rows {
		n := newCommentNode(&rows[i], liked[rows[i].ID])
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		children[*n.ParentID] = append(children[*n.ParentID], n)
	}

	// 迭代先序遍历：只有从根可达的节点才进入结果
	index := make(map[uint64]*CommentNode, len(rows))
	stack := make([]*CommentNode, 0, len(rows))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		index[n.ID] = n

		kids := children[n.ID]
		if len(kids) > 0 {
			n.Children = kids
		}
		for i := len(kids) - 1; i >= 0; i-- {
			kids[i].Depth = n.Depth + 1
			stack = append(stack, kids[i])
		}
	}
	return roots, index
}

// Flatten 先序展开：父在前，子按同级顺序
func Flatten(roots []*CommentNode) []*CommentNode {
	out := make([]*CommentNode, 0)
	stack := make([]*CommentNode, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, n)
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return out
}

func newCommentNode(c *model.Comment, liked bool) *CommentNode {
	return &CommentNode{
		ID:           c.ID,
		PostID:       c.PostID,
		Author:       authorView(c.Author),
		Content:      c.Content,
		LikeCount:    c.LikeCount,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		ParentID:     c.ParentID,
		UserHasLiked: liked,
		Children:     []*CommentNode{},
	}
}
