//go:build windows

package cli

import (
	"context"
	"log/slog"

	"golang.org/x/sys/windows/svc"
)

// runWindowsService runs handler under the service control manager until
// it returns or the service is asked to stop
func runWindowsService(name string, handler func(ctx context.Context) error) error {
	return svc.Run(name, &windowsService{handler: handler})
}

// windowsService implements svc.Handler.
type windowsService struct {
	handler func(ctx context.Context) error
}

func (ws *windowsService) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (svcSpecificEC bool, exitCode uint32) {
	const cmdsAccepted = svc.AcceptStop | svc.AcceptShutdown

	changes <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- ws.handler(ctx)
	}()

	changes <- svc.Status{State: svc.Running, Accepts: cmdsAccepted}

	for {
		select {
		case err := <-errCh:
			if err != nil {
				slog.Error("echo service failed", "error", err)
				return true, 1
			}
			return false, 0

		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus

			case svc.Stop, svc.Shutdown:
				changes <- svc.Status{State: svc.StopPending}
				cancel()
				<-errCh
				return false, 0
			}
		}
	}
}
