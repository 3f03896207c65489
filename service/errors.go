package service

import "errors"

var (
	ErrDocumentNotFound   = errors.New("document not found")
	ErrAnalysisInProgress = errors.New("analysis already in progress for this document")
	ErrMalformedDocument  = errors.New("document content is empty or unreadable")
)
