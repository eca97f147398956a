package task

// DefaultStatus is forced onto every newly created task.
const DefaultStatus = "backlog"

// Fields are the client-editable attributes of a task. Replace overwrites all
// of them at once.
type Fields struct {
	Name         string `json:"name" yaml:"name"`
	Email        string `json:"email" yaml:"email"`
	Title        string `json:"title" yaml:"title"`
	Descriptions string `json:"descriptions" yaml:"descriptions"`
	DateForm     string `json:"date_form" yaml:"date_form"`
	DateToo      string `json:"date_too" yaml:"date_too"`
	Priority     string `json:"priority" yaml:"priority"`
}

type Task struct {
	ID     string `json:"_id" yaml:"id"`
	Fields `yaml:",inline"`
	// Status is free-form; no transition rules apply.
	Status string `json:"status" yaml:"status"`
}

// InsertResult, UpdateResult and DeleteResult are the storage
// acknowledgments returned verbatim to clients.
type InsertResult struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

type UpdateResult struct {
	Acknowledged  bool    `json:"acknowledged"`
	MatchedCount  int64   `json:"matchedCount"`
	ModifiedCount int64   `json:"modifiedCount"`
	UpsertedCount int64   `json:"upsertedCount"`
	UpsertedID    *string `json:"upsertedId"`
}

type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}
