package types

import "github.com/m-mizutani/goerr/v2"

var (
	ErrInvalidOption   = goerr.New("invalid option")
	ErrInvalidPipeline = goerr.New("invalid pipeline definition")
	ErrInvalidWorkflow = goerr.New("invalid workflow definition")
)
