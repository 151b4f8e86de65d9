package normalize

// Platform is the constant first column of every exported record.
const Platform = "Reddit"

// Record types. A post is always POST; a top-level comment (direct child of
// the post) is COMMENT; anything deeper is REPLY.
const (
	TypePost    = "POST"
	TypeComment = "COMMENT"
	TypeReply   = "REPLY"
)

// dateLayout renders creation timestamps as DD-MM-YYYY in UTC.
const dateLayout = "02-01-2006"

// Record is one flattened row of the export, fields in column order.
type Record struct {
	Platform          string
	Entity            string
	Date              string
	Type              string
	ID                string
	Description       string
	ParentDescription string
}
