package reddit

import "encoding/json"

// Thing kinds returned by the Reddit API.
const (
	kindListing = "Listing"
	kindComment = "t1"
	kindPost    = "t3"
	kindMore    = "more"
)

// Fullname prefixes. Reddit identifies objects by "fullnames" such as
// "t3_abc123" where the prefix encodes the type and the rest is the ID.
const (
	postPrefix    = "t3_"
	commentPrefix = "t1_"
)

// PostFullname prefixes a bare post ID: "abc123" becomes "t3_abc123".
func PostFullname(id string) string {
	return postPrefix + id
}

// CommentFullname prefixes a bare comment ID: "def456" becomes "t1_def456".
func CommentFullname(id string) string {
	return commentPrefix + id
}

// Thing is the envelope around every Reddit API object. Data is left raw and
// decoded by the Parser according to Kind.
type Thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Listing holds one page of a paginated endpoint. After carries the fullname
// to pass as the "after" query parameter for the next page; it is empty on
// the last page.
type Listing struct {
	After    string   `json:"after"`
	Children []*Thing `json:"children"`
}

// Post is a submission (kind "t3"), trimmed to the fields the exporter reads.
type Post struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"` // fullname, e.g. "t3_abc123"
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Subreddit   string  `json:"subreddit"`
	Permalink   string  `json:"permalink"`
}

// Comment is a comment (kind "t1"). ParentID is the fullname of either the
// post ("t3_...") for top-level comments or another comment ("t1_...").
// Replies holds the raw nested listing; the Parser drains it while
// flattening and clears it afterwards.
type Comment struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"` // fullname, e.g. "t1_def456"
	ParentID   string          `json:"parent_id"`
	LinkID     string          `json:"link_id"`
	Author     string          `json:"author"`
	Body       string          `json:"body"`
	Score      int             `json:"score"`
	CreatedUTC float64         `json:"created_utc"`
	Replies    json.RawMessage `json:"replies"`
}

// More is a "more" stub (kind "more"): a placeholder for comments Reddit
// truncated from the tree. Children lists their bare IDs for the
// morechildren endpoint.
type More struct {
	Name     string   `json:"name"`
	Count    int      `json:"count"`
	Children []string `json:"children"`
}
