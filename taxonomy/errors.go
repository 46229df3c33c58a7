package taxonomy

import "errors"

// Errors returned by the taxonomy core. Lookups that find nothing return nil
// without an error; these signal broken structure, configuration or input.
var (
	ErrNodeOutsideVocabulary     = errors.New("node is outside of any vocabulary")
	ErrRootCreationInconsistency = errors.New("taxonomy root could neither be found nor created")
	ErrInvalidConfiguration      = errors.New("invalid taxonomy configuration")
	ErrInvalidParent             = errors.New("invalid parent node")
	ErrNotEditable               = errors.New("node is neither a vocabulary nor a taxonomy")
	ErrLiveWorkspaceMissing      = errors.New("live workspace is missing")
)

const component = "taxonomy"
