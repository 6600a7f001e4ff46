package commands

import (
	"context"
	"sort"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/worker"
	"github.com/urfave/cli/v3"
)

type workerView struct {
	worker.Status
	Online bool `json:"online"`
}

// WorkerCommands returns the worker monitoring commands.
func WorkerCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "workers",
			Usage: "Inspect background workers",
			Commands: []*cli.Command{
				{
					Name:   "status",
					Usage:  "Show the last heartbeat of every worker",
					Action: handleWorkersStatus(deps),
				},
			},
		},
	}
}

func handleWorkersStatus(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		monitor := worker.NewMonitor(deps.App.StatusClient, deps.App.Logger)

		statuses, err := monitor.GetAllStatuses(ctx)
		if err != nil {
			return err
		}

		sort.Slice(statuses, func(i, j int) bool {
			if statuses[i].WorkerType != statuses[j].WorkerType {
				return statuses[i].WorkerType < statuses[j].WorkerType
			}
			return statuses[i].WorkerID < statuses[j].WorkerID
		})

		now := time.Now()
		views := make([]workerView, 0, len(statuses))
		for _, status := range statuses {
			views = append(views, workerView{Status: status, Online: status.IsOnline(now)})
		}
		return printJSON(views)
	}
}
