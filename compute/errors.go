package compute

import "errors"

// Computer-configuration error kinds. These are fatal for the operation
// that triggered them; the computer itself remains usable.
var (
	ErrInitDone         = errors.New("compute: configuration after initialization is complete")
	ErrDupProcessorName = errors.New("compute: duplicate processor name")
	ErrNoProcessorFound = errors.New("compute: no such processor")
	ErrDupContainerName = errors.New("compute: duplicate container name")
	ErrDupLambdaName    = errors.New("compute: duplicate lambda name")
	ErrNoContainerFound = errors.New("compute: no container for lambda")
)
