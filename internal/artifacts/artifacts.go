package artifacts

import _ "embed"

// Global artifacts

//go:embed global/mounts.yaml
var DefaultDeclaration []byte
