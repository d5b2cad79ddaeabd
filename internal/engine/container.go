package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	dockerclient "github.com/docker/docker/client"
	"github.com/google/uuid"

	"github.com/re-cinq/fleetd/internal/config"
	"github.com/re-cinq/fleetd/internal/logging"
)

// runContainerStep runs a step inside a container image instead of on the
// host: pull if needed, bind-mount the project dir at /app, stream combined
// logs into the watch's log file, and always force-remove the container
// afterward.
func runContainerStep(ctx context.Context, log *logging.Logger, dir string, step config.Cmd, env map[string]string, timeout time.Duration) (stepResult, error) {
	cli, err := dockerclient.NewClientWithOpts(dockerclient.FromEnv, dockerclient.WithAPIVersionNegotiation())
	if err != nil {
		return stepResult{}, fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	if err := ensureImage(ctx, cli, log, step.Container); err != nil {
		return stepResult{}, err
	}

	name := "fleet-job-" + uuid.NewString()[:8]
	var envList []string
	for k, v := range env {
		envList = append(envList, k+"="+v)
	}

	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image:      step.Container,
		Cmd:        []string{"sh", "-c", step.Cmd},
		WorkingDir: "/app",
		Env:        envList,
	}, &container.HostConfig{
		Binds: []string{dir + ":/app"},
	}, nil, nil, name)
	if err != nil {
		return stepResult{}, fmt.Errorf("creating container: %w", err)
	}
	defer func() {
		_ = cli.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true})
	}()

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return stepResult{}, fmt.Errorf("starting container: %w", err)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logsDone := make(chan error, 1)
	go func() {
		logsDone <- streamContainerLogs(runCtx, cli, resp.ID, log)
	}()

	statusCh, errCh := cli.ContainerWait(runCtx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		<-logsDone
		if err != nil {
			return stepResult{}, fmt.Errorf("waiting for container: %w", err)
		}
	case status := <-statusCh:
		<-logsDone
		if status.StatusCode != 0 {
			return stepResult{}, fmt.Errorf("container exited with status %d", status.StatusCode)
		}
	case <-runCtx.Done():
		return stepResult{}, fmt.Errorf("container step timed out: %w", runCtx.Err())
	}
	return stepResult{}, nil
}

// ensureImage pulls the image when it is not already present locally.
// Every line of the pull's progress stream is written to the log; repeated
// or unchanged status lines are not filtered out.
func ensureImage(ctx context.Context, cli *dockerclient.Client, log *logging.Logger, ref string) error {
	_, _, err := cli.ImageInspectWithRaw(ctx, ref)
	if err == nil {
		return nil
	}

	reader, err := cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pulling image %s: %w", ref, err)
	}
	defer reader.Close()

	lw := &logWriter{log: log}
	if _, err := io.Copy(lw, reader); err != nil {
		return fmt.Errorf("streaming pull progress for %s: %w", ref, err)
	}
	return nil
}

func streamContainerLogs(ctx context.Context, cli *dockerclient.Client, containerID string, log *logging.Logger) error {
	out, err := cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return fmt.Errorf("streaming container logs: %w", err)
	}
	defer out.Close()

	lw := &logWriter{log: log}
	_, err = io.Copy(lw, out)
	return err
}
