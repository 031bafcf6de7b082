//go:build windows && amd64

package patch

import "github.com/andreievg/dethook/internal/winapi"

const contextDebugFlags = winapi.ContextAMD64Debug
