//go:build windows && 386

package patch

import "github.com/andreievg/dethook/internal/winapi"

const contextDebugFlags = winapi.ContextI386Debug
