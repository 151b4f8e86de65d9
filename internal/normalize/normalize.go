// Package normalize flattens a post and its comment forest into the tabular
// records the exporter writes. It is pure data transformation: no network,
// no files, no logging.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"subsheet/internal/reddit"
	pkgerrs "subsheet/pkg/errors"
)

// Result holds the flattened rows for one post plus the IDs of comments that
// were skipped because their parent could not be resolved.
type Result struct {
	Records  []Record
	Orphaned []string
}

// node is a stitched comment with its children in input order.
type node struct {
	comment  *reddit.Comment
	children []*node
}

// frame is one entry of the explicit depth-first stack.
type frame struct {
	node       *node
	parentDesc string
	topLevel   bool
}

// Normalize flattens one post and its comment forest into records: the post
// first, then every reachable comment in depth-first pre-order, so each
// comment appears after its parent and before any comment outside its
// subtree. Sibling order follows input order.
//
// The post record's description joins title and body text; it doubles as the
// parent description of every top-level comment. Deeper comments carry their
// parent comment's body text.
//
// Comments are stitched to parents by fullname. A duplicate comment ID keeps
// the first occurrence. A comment whose parent resolves to neither the post
// nor another comment is skipped together with its entire subtree and
// reported in Result.Orphaned; a nil comment, an empty ID or a missing
// creation timestamp means the fetch itself was inconsistent and fails the
// post with MalformedInputError.
func Normalize(entity string, post *reddit.Post, comments []*reddit.Comment) (*Result, error) {
	if post == nil {
		return nil, &pkgerrs.MalformedInputError{Reason: "post is nil"}
	}
	if post.ID == "" {
		return nil, &pkgerrs.MalformedInputError{Reason: "post has empty ID"}
	}
	if post.CreatedUTC <= 0 {
		return nil, &pkgerrs.MalformedInputError{PostID: post.ID, Reason: "post has no creation timestamp"}
	}

	postDesc := strings.TrimSpace(post.Title + " " + post.SelfText)

	records := make([]Record, 0, len(comments)+1)
	records = append(records, Record{
		Platform:    Platform,
		Entity:      entity,
		Date:        formatDate(post.CreatedUTC),
		Type:        TypePost,
		ID:          post.ID,
		Description: postDesc,
	})

	// Index the forest by fullname, first occurrence winning for duplicate
	// IDs (morechildren batches can re-deliver a comment).
	nodes := make([]*node, 0, len(comments))
	byName := make(map[string]*node, len(comments))
	for _, c := range comments {
		if c == nil || c.ID == "" {
			return nil, &pkgerrs.MalformedInputError{PostID: post.ID, Reason: "comment has empty ID"}
		}
		if c.CreatedUTC <= 0 {
			return nil, &pkgerrs.MalformedInputError{PostID: post.ID, Reason: fmt.Sprintf("comment %s has no creation timestamp", c.ID)}
		}
		name := reddit.CommentFullname(c.ID)
		if _, ok := byName[name]; ok {
			continue
		}
		n := &node{comment: c}
		byName[name] = n
		nodes = append(nodes, n)
	}

	// Stitch children onto parents. Top-level comments reference the post's
	// fullname; anything whose parent is neither the post nor an indexed
	// comment stays unreachable and surfaces as orphaned after the walk.
	postName := reddit.PostFullname(post.ID)
	var roots []*node
	for _, n := range nodes {
		if n.comment.ParentID == postName {
			roots = append(roots, n)
			continue
		}
		if parent, ok := byName[n.comment.ParentID]; ok && parent != n {
			parent.children = append(parent.children, n)
		}
	}

	// Depth-first pre-order over an explicit stack. Children are pushed in
	// reverse so siblings pop in input order.
	emitted := make(map[string]bool, len(nodes))
	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: roots[i], parentDesc: postDesc, topLevel: true})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		c := f.node.comment
		if emitted[c.ID] {
			continue
		}
		emitted[c.ID] = true

		recordType := TypeReply
		if f.topLevel {
			recordType = TypeComment
		}
		records = append(records, Record{
			Platform:          Platform,
			Entity:            entity,
			Date:              formatDate(c.CreatedUTC),
			Type:              recordType,
			ID:                c.ID,
			Description:       c.Body,
			ParentDescription: f.parentDesc,
		})

		for i := len(f.node.children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.children[i], parentDesc: c.Body})
		}
	}

	var orphaned []string
	for _, n := range nodes {
		if !emitted[n.comment.ID] {
			orphaned = append(orphaned, n.comment.ID)
		}
	}

	return &Result{Records: records, Orphaned: orphaned}, nil
}

func formatDate(createdUTC float64) string {
	return time.Unix(int64(createdUTC), 0).UTC().Format(dateLayout)
}
