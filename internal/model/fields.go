package model

// FieldType represents the expected shape of a field value in a validation
// payload.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInt
	FieldFloat
	FieldBool
	FieldTimestamp
	FieldStringSlice
	FieldMap
)

// String returns the string representation of the field type.
func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldInt:
		return "int"
	case FieldFloat:
		return "float"
	case FieldBool:
		return "bool"
	case FieldTimestamp:
		return "timestamp"
	case FieldStringSlice:
		return "string list"
	case FieldMap:
		return "map"
	default:
		return "unknown"
	}
}

// FieldSpec describes the shape constraints of one payload field. Enum, when
// set, restricts string values to the listed set. MaxLen of zero means
// unbounded.
type FieldSpec struct {
	Type     FieldType
	Required bool
	MaxLen   int
	Enum     []string
}

// ListCreateFields returns the payload schema for creating a list.
func ListCreateFields() map[string]FieldSpec {
	return map[string]FieldSpec{
		"title":       {Type: FieldString, Required: true, MaxLen: 255},
		"description": {Type: FieldString, MaxLen: 2000},
		"parentId":    {Type: FieldString},
		"status":      {Type: FieldString, Enum: ListStatusValues()},
		"completedAt": {Type: FieldTimestamp},
		"metadata":    {Type: FieldMap},
	}
}

// ListUpdateFields returns the payload schema for updating a list. The id
// identifies the record being updated and is required; createdAt and
// updatedAt are server-owned and rejected by the validator.
func ListUpdateFields() map[string]FieldSpec {
	return map[string]FieldSpec{
		"id":          {Type: FieldString, Required: true},
		"title":       {Type: FieldString, MaxLen: 255},
		"description": {Type: FieldString, MaxLen: 2000},
		"parentId":    {Type: FieldString},
		"status":      {Type: FieldString, Enum: ListStatusValues()},
		"completedAt": {Type: FieldTimestamp},
		"metadata":    {Type: FieldMap},
	}
}

// ItemCreateFields returns the payload schema for creating an item.
func ItemCreateFields() map[string]FieldSpec {
	return map[string]FieldSpec{
		"title":             {Type: FieldString, Required: true, MaxLen: 255},
		"description":       {Type: FieldString, MaxLen: 5000},
		"listId":            {Type: FieldString, Required: true},
		"status":            {Type: FieldString, Enum: ItemStatusValues()},
		"priority":          {Type: FieldString, Enum: PriorityValues()},
		"assigneeId":        {Type: FieldString},
		"dependencies":      {Type: FieldStringSlice},
		"dueDate":           {Type: FieldTimestamp},
		"estimatedDuration": {Type: FieldInt},
		"actualDuration":    {Type: FieldInt},
		"completedAt":       {Type: FieldTimestamp},
		"tags":              {Type: FieldStringSlice},
		"metadata":          {Type: FieldMap},
	}
}

// ItemUpdateFields returns the payload schema for updating an item.
func ItemUpdateFields() map[string]FieldSpec {
	return map[string]FieldSpec{
		"id":                {Type: FieldString, Required: true},
		"title":             {Type: FieldString, MaxLen: 255},
		"description":       {Type: FieldString, MaxLen: 5000},
		"listId":            {Type: FieldString},
		"status":            {Type: FieldString, Enum: ItemStatusValues()},
		"priority":          {Type: FieldString, Enum: PriorityValues()},
		"assigneeId":        {Type: FieldString},
		"dependencies":      {Type: FieldStringSlice},
		"dueDate":           {Type: FieldTimestamp},
		"estimatedDuration": {Type: FieldInt},
		"actualDuration":    {Type: FieldInt},
		"completedAt":       {Type: FieldTimestamp},
		"tags":              {Type: FieldStringSlice},
		"metadata":          {Type: FieldMap},
	}
}

// ImmutableFields lists payload keys the server owns. An update payload
// containing any of them is rejected.
func ImmutableFields() []string {
	return []string{"createdAt", "updatedAt"}
}
