package reddit

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestParseListing(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name        string
		thing       *Thing
		expectError bool
	}{
		{
			name:        "nil thing",
			thing:       nil,
			expectError: true,
		},
		{
			name: "wrong kind",
			thing: &Thing{
				Kind: "t3",
				Data: json.RawMessage(`{}`),
			},
			expectError: true,
		},
		{
			name: "valid listing",
			thing: &Thing{
				Kind: "Listing",
				Data: json.RawMessage(`{"after":"t3_abc","children":[]}`),
			},
			expectError: false,
		},
		{
			name: "invalid JSON",
			thing: &Thing{
				Kind: "Listing",
				Data: json.RawMessage(`{invalid json}`),
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parser.ParseListing(tt.thing)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if result == nil {
					t.Errorf("expected result but got nil")
				}
			}
		})
	}
}

func TestParsePost(t *testing.T) {
	parser := NewParser()

	thing := &Thing{
		Kind: "t3",
		Data: json.RawMessage(`{
			"id":"abc123",
			"name":"t3_abc123",
			"title":"Hello",
			"selftext":"World",
			"author":"gopher",
			"score":42,
			"num_comments":7,
			"created_utc":1704067200,
			"subreddit":"golang",
			"permalink":"/r/golang/comments/abc123/hello/"
		}`),
	}

	post, err := parser.ParsePost(thing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if post.ID != "abc123" || post.Name != "t3_abc123" {
		t.Errorf("unexpected identity fields: id=%q name=%q", post.ID, post.Name)
	}
	if post.Title != "Hello" || post.SelfText != "World" {
		t.Errorf("unexpected text fields: title=%q selftext=%q", post.Title, post.SelfText)
	}
	if post.Score != 42 || post.NumComments != 7 {
		t.Errorf("unexpected counters: score=%d num_comments=%d", post.Score, post.NumComments)
	}
	if post.CreatedUTC != 1704067200 {
		t.Errorf("unexpected created_utc: %v", post.CreatedUTC)
	}

	if _, err := parser.ParsePost(&Thing{Kind: "t1", Data: json.RawMessage(`{}`)}); err == nil {
		t.Error("expected error for wrong kind")
	}
	if _, err := parser.ParsePost(nil); err == nil {
		t.Error("expected error for nil thing")
	}
}

func TestParseComment(t *testing.T) {
	parser := NewParser()

	thing := &Thing{
		Kind: "t1",
		Data: json.RawMessage(`{
			"id":"c1",
			"name":"t1_c1",
			"parent_id":"t3_abc123",
			"link_id":"t3_abc123",
			"author":"commenter",
			"body":"nice post",
			"score":3,
			"created_utc":1704153600,
			"replies":""
		}`),
	}

	comment, err := parser.ParseComment(thing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if comment.ID != "c1" || comment.ParentID != "t3_abc123" {
		t.Errorf("unexpected identity fields: id=%q parent_id=%q", comment.ID, comment.ParentID)
	}
	if comment.Body != "nice post" {
		t.Errorf("unexpected body: %q", comment.Body)
	}

	if _, err := parser.ParseComment(&Thing{Kind: "more", Data: json.RawMessage(`{}`)}); err == nil {
		t.Error("expected error for wrong kind")
	}
}

func TestParseMore(t *testing.T) {
	parser := NewParser()

	thing := &Thing{
		Kind: "more",
		Data: json.RawMessage(`{"name":"t1_m1","count":12,"children":["d1","d2","d3"]}`),
	}

	more, err := parser.ParseMore(thing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(more.Children, []string{"d1", "d2", "d3"}) {
		t.Errorf("unexpected children: %v", more.Children)
	}
	if more.Count != 12 {
		t.Errorf("unexpected count: %d", more.Count)
	}
}

func TestExtractPosts(t *testing.T) {
	parser := NewParser()

	parseListing := func(t *testing.T, data string) *Listing {
		t.Helper()
		listing, err := parser.ParseListing(&Thing{Kind: "Listing", Data: json.RawMessage(data)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return listing
	}

	t.Run("posts in listing order, non-posts skipped", func(t *testing.T) {
		listing := parseListing(t, `{
			"after":"",
			"children":[
				{"kind":"t3","data":{"id":"p1","name":"t3_p1","title":"one","score":5}},
				{"kind":"more","data":{"children":["x"]}},
				{"kind":"t3","data":{"id":"p2","name":"t3_p2","title":"two","score":9}}
			]
		}`)

		posts, err := parser.ExtractPosts(listing)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(posts) != 2 {
			t.Fatalf("expected 2 posts, got %d", len(posts))
		}
		if posts[0].ID != "p1" || posts[1].ID != "p2" {
			t.Errorf("unexpected post order: %q, %q", posts[0].ID, posts[1].ID)
		}
	})

	t.Run("malformed post aborts extraction", func(t *testing.T) {
		listing := parseListing(t, `{
			"after":"",
			"children":[{"kind":"t3","data":"not an object"}]
		}`)

		if _, err := parser.ExtractPosts(listing); err == nil {
			t.Error("expected error for malformed post data")
		}
	})

	t.Run("nil listing rejected", func(t *testing.T) {
		if _, err := parser.ExtractPosts(nil); err == nil {
			t.Error("expected error for nil listing")
		}
	})
}

func TestFlattenComments(t *testing.T) {
	parser := NewParser()

	t.Run("nested replies in document order", func(t *testing.T) {
		// c1 has a child c2 which has a child c3; c4 is a second root.
		thing := &Thing{
			Kind: "Listing",
			Data: json.RawMessage(`{
				"after":"",
				"children":[
					{"kind":"t1","data":{"id":"c1","name":"t1_c1","parent_id":"t3_p1","body":"root one","replies":
						{"kind":"Listing","data":{"after":"","children":[
							{"kind":"t1","data":{"id":"c2","name":"t1_c2","parent_id":"t1_c1","body":"child","replies":
								{"kind":"Listing","data":{"after":"","children":[
									{"kind":"t1","data":{"id":"c3","name":"t1_c3","parent_id":"t1_c2","body":"grandchild","replies":""}}
								]}}
							}}
						]}}
					}},
					{"kind":"t1","data":{"id":"c4","name":"t1_c4","parent_id":"t3_p1","body":"root two","replies":""}}
				]
			}`),
		}

		comments, moreIDs, err := parser.FlattenComments(thing)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(moreIDs) != 0 {
			t.Errorf("expected no more IDs, got %v", moreIDs)
		}

		gotIDs := make([]string, len(comments))
		for i, c := range comments {
			gotIDs[i] = c.ID
		}
		wantIDs := []string{"c1", "c2", "c3", "c4"}
		if !reflect.DeepEqual(gotIDs, wantIDs) {
			t.Errorf("comment order = %v, want %v", gotIDs, wantIDs)
		}

		for _, c := range comments {
			if c.Replies != nil {
				t.Errorf("comment %s still carries raw replies after flatten", c.ID)
			}
		}
	})

	t.Run("more stubs collected at every depth", func(t *testing.T) {
		thing := &Thing{
			Kind: "Listing",
			Data: json.RawMessage(`{
				"after":"",
				"children":[
					{"kind":"t1","data":{"id":"c1","name":"t1_c1","parent_id":"t3_p1","body":"root","replies":
						{"kind":"Listing","data":{"after":"","children":[
							{"kind":"more","data":{"count":2,"children":["m1","m2"]}}
						]}}
					}},
					{"kind":"more","data":{"count":1,"children":["m3"]}}
				]
			}`),
		}

		comments, moreIDs, err := parser.FlattenComments(thing)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(comments) != 1 || comments[0].ID != "c1" {
			t.Fatalf("expected single comment c1, got %v", comments)
		}
		// Nested stubs surface before later siblings' stubs.
		wantIDs := []string{"m1", "m2", "m3"}
		if !reflect.DeepEqual(moreIDs, wantIDs) {
			t.Errorf("more IDs = %v, want %v", moreIDs, wantIDs)
		}
	})

	t.Run("malformed replies aborts flatten", func(t *testing.T) {
		thing := &Thing{
			Kind: "Listing",
			Data: json.RawMessage(`{
				"after":"",
				"children":[
					{"kind":"t1","data":{"id":"c1","name":"t1_c1","parent_id":"t3_p1","body":"root","replies":42}}
				]
			}`),
		}

		if _, _, err := parser.FlattenComments(thing); err == nil {
			t.Error("expected error for malformed replies")
		}
	})

	t.Run("non-listing thing rejected", func(t *testing.T) {
		if _, _, err := parser.FlattenComments(&Thing{Kind: "t1", Data: json.RawMessage(`{}`)}); err == nil {
			t.Error("expected error for non-listing thing")
		}
	})
}

func TestSplitCommentsResponse(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name        string
		body        string
		wantThings  int
		expectError bool
	}{
		{
			name:       "array of post and comments listings",
			body:       `[{"kind":"Listing","data":{"children":[]}},{"kind":"Listing","data":{"children":[]}}]`,
			wantThings: 2,
		},
		{
			name:       "bare comments listing",
			body:       `{"kind":"Listing","data":{"children":[]}}`,
			wantThings: 1,
		},
		{
			name:        "empty array",
			body:        `[]`,
			expectError: true,
		},
		{
			name:        "array with null element",
			body:        `[null]`,
			expectError: true,
		},
		{
			name:        "bare non-listing object",
			body:        `{"kind":"t3","data":{}}`,
			expectError: true,
		},
		{
			name:        "empty body",
			body:        ``,
			expectError: true,
		},
		{
			name:        "invalid JSON",
			body:        `[{]`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			things, err := parser.SplitCommentsResponse([]byte(tt.body))

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(things) != tt.wantThings {
				t.Errorf("expected %d things, got %d", tt.wantThings, len(things))
			}
		})
	}
}
