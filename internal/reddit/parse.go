package reddit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Parser decodes Reddit API Things into typed structs.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// ParseListing extracts a Listing from a Thing of kind "Listing".
func (p *Parser) ParseListing(thing *Thing) (*Listing, error) {
	if thing == nil {
		return nil, errors.New("thing is nil")
	}
	if thing.Kind != kindListing {
		return nil, fmt.Errorf("expected %s, got %s", kindListing, thing.Kind)
	}

	var listing Listing
	if err := json.Unmarshal(thing.Data, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse Listing data: %w", err)
	}
	return &listing, nil
}

// ParsePost extracts a Post from a Thing of kind "t3".
func (p *Parser) ParsePost(thing *Thing) (*Post, error) {
	if thing == nil {
		return nil, errors.New("thing is nil")
	}
	if thing.Kind != kindPost {
		return nil, fmt.Errorf("expected %s (post), got %s", kindPost, thing.Kind)
	}

	var post Post
	if err := json.Unmarshal(thing.Data, &post); err != nil {
		return nil, fmt.Errorf("failed to parse post data: %w", err)
	}
	return &post, nil
}

// ParseComment extracts a Comment from a Thing of kind "t1". The raw replies
// listing is kept on the Comment for FlattenComments to drain.
func (p *Parser) ParseComment(thing *Thing) (*Comment, error) {
	if thing == nil {
		return nil, errors.New("thing is nil")
	}
	if thing.Kind != kindComment {
		return nil, fmt.Errorf("expected %s (comment), got %s", kindComment, thing.Kind)
	}

	var comment Comment
	if err := json.Unmarshal(thing.Data, &comment); err != nil {
		return nil, fmt.Errorf("failed to parse comment data: %w", err)
	}
	return &comment, nil
}

// ParseMore extracts a More from a Thing of kind "more".
func (p *Parser) ParseMore(thing *Thing) (*More, error) {
	if thing == nil {
		return nil, errors.New("thing is nil")
	}
	if thing.Kind != kindMore {
		return nil, fmt.Errorf("expected %s, got %s", kindMore, thing.Kind)
	}

	var more More
	if err := json.Unmarshal(thing.Data, &more); err != nil {
		return nil, fmt.Errorf("failed to parse more data: %w", err)
	}
	return &more, nil
}

// ExtractPosts returns the posts from a parsed listing, in listing order.
// Non-post children are ignored.
func (p *Parser) ExtractPosts(listing *Listing) ([]*Post, error) {
	if listing == nil {
		return nil, errors.New("listing is nil")
	}

	posts := make([]*Post, 0, len(listing.Children))
	for _, child := range listing.Children {
		if child == nil || child.Kind != kindPost {
			continue
		}
		post, err := p.ParsePost(child)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// FlattenComments walks a comments listing Thing and returns every comment in
// the tree in document order, together with the IDs of all truncated comments
// from "more" stubs at any depth. Each comment keeps its ParentID so the tree
// can be rebuilt; the raw Replies field is cleared once consumed.
func (p *Parser) FlattenComments(thing *Thing) ([]*Comment, []string, error) {
	listing, err := p.ParseListing(thing)
	if err != nil {
		return nil, nil, err
	}
	return p.FlattenThings(listing.Children)
}

// FlattenThings processes listing children directly. It is shared by
// FlattenComments and the morechildren response handling, which returns a
// bare slice of Things rather than a Listing.
func (p *Parser) FlattenThings(things []*Thing) ([]*Comment, []string, error) {
	comments := make([]*Comment, 0, len(things))
	var moreIDs []string

	for _, child := range things {
		if child == nil {
			continue
		}
		switch child.Kind {
		case kindComment:
			comment, err := p.ParseComment(child)
			if err != nil {
				return nil, nil, err
			}
			comments = append(comments, comment)

			replies := comment.Replies
			comment.Replies = nil
			// Reddit sends "" instead of a listing when there are no replies.
			if len(replies) == 0 || bytes.Equal(replies, []byte(`""`)) {
				continue
			}
			var repliesThing Thing
			if err := json.Unmarshal(replies, &repliesThing); err != nil {
				return nil, nil, fmt.Errorf("failed to parse replies of comment %s: %w", comment.ID, err)
			}
			subComments, subMore, err := p.FlattenComments(&repliesThing)
			if err != nil {
				return nil, nil, err
			}
			comments = append(comments, subComments...)
			moreIDs = append(moreIDs, subMore...)
		case kindMore:
			more, err := p.ParseMore(child)
			if err != nil {
				return nil, nil, err
			}
			moreIDs = append(moreIDs, more.Children...)
		}
	}

	return comments, moreIDs, nil
}

// SplitCommentsResponse decodes the body of a comments endpoint call. Reddit
// usually answers with a two-element array [post listing, comments listing]
// but may return a bare listing object. An empty array or a null element is
// rejected.
func (p *Parser) SplitCommentsResponse(body []byte) ([]*Thing, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response")
	}

	if trimmed[0] == '[' {
		var things []*Thing
		if err := json.Unmarshal(trimmed, &things); err != nil {
			return nil, fmt.Errorf("failed to parse comments array response: %w", err)
		}
		if len(things) == 0 {
			return nil, errors.New("empty array response")
		}
		for i, thing := range things {
			if thing == nil {
				return nil, fmt.Errorf("null element at index %d in comments response", i)
			}
		}
		return things, nil
	}

	var thing Thing
	if err := json.Unmarshal(trimmed, &thing); err != nil {
		return nil, fmt.Errorf("failed to parse comments response: %w", err)
	}
	if thing.Kind != kindListing {
		return nil, fmt.Errorf("unexpected response kind: %s", thing.Kind)
	}
	return []*Thing{&thing}, nil
}
