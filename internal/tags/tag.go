package tags

import "errors"

var (
	ErrTagNotFound  = errors.New("tag not found")
	ErrTagExists    = errors.New("tag already exists")
	ErrTagNameEmpty = errors.New("tag name empty")
)

type Tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
