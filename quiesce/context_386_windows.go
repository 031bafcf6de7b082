//go:build windows && 386

package quiesce

import (
	"github.com/andreievg/dethook/internal/winapi"
	"github.com/andreievg/dethook/proc"
)

func contextIP(th *proc.ThreadHandle) (uintptr, error) {
	var ctx winapi.Context
	ctx.ContextFlags = winapi.ContextI386 | contextFlagsForIP
	if err := th.GetContext(&ctx); err != nil {
		return 0, err
	}
	return ctx.IP(), nil
}
