package record

import "errors"

var (
	ErrRecordNotFound      = errors.New("record does not exist")
	ErrNotAuthorizedToView = errors.New("not authorized to view this record")
	ErrNotAuthorizedToList = errors.New("not authorized to view records")
	ErrOnlyProvidersCanAdd = errors.New("only registered providers can add records")
)
