package schedule

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/camden-git/photoframebackend/models"
)

// Commander abstracts the HDMI-CEC control binary.
type Commander interface {
	// SetPower turns the display on (true) or puts it in standby (false).
	SetPower(on bool) error
	// Available reports whether the control channel can be used at all.
	Available() bool
}

// CECCommander drives the display over HDMI-CEC via cec-client.
type CECCommander struct {
	// Binary defaults to "cec-client".
	Binary string
}

func (c *CECCommander) binary() string {
	if c.Binary == "" {
		return "cec-client"
	}
	return c.Binary
}

// Available reports whether cec-client is installed.
func (c *CECCommander) Available() bool {
	_, err := exec.LookPath(c.binary())
	return err == nil
}

// SetPower sends "on 0" or "standby 0" to the display on CEC address 0.
func (c *CECCommander) SetPower(on bool) error {
	command := "standby 0"
	if on {
		command = "on 0"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binary(), "-s", "-d", "1")
	cmd.Stdin = strings.NewReader(command)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cec command '%s' failed: %w (output: %.200s)", command, err, string(out))
	}
	return nil
}

// PowerController polls the TV schedules and drives the display power state.
// It sends a command only when the desired state changes; a failed send is
// logged and retried on the next tick.
type PowerController struct {
	Commander Commander
	Clock     Clock
	Interval  time.Duration
	// Schedules returns the current schedule list on each tick.
	Schedules func() []models.TVSchedule

	lastApplied *bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// Start launches the polling loop.
func (pc *PowerController) Start(ctx context.Context) {
	if pc.Interval <= 0 {
		pc.Interval = time.Minute
	}
	if pc.Clock == nil {
		pc.Clock = SystemClock{}
	}
	ctx, pc.cancel = context.WithCancel(ctx)
	pc.done = make(chan struct{})
	go pc.loop(ctx)
	log.Printf("schedule: TV power controller started (interval %s)", pc.Interval)
}

// Stop terminates the polling loop and waits for it to exit.
func (pc *PowerController) Stop() {
	if pc.cancel != nil {
		pc.cancel()
		<-pc.done
	}
	log.Printf("schedule: TV power controller stopped")
}

func (pc *PowerController) loop(ctx context.Context) {
	defer close(pc.done)

	pc.Tick()

	ticker := time.NewTicker(pc.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pc.Tick()
		}
	}
}

// Tick evaluates the schedules once and applies any power change. Exported
// so tests can drive the controller without the timer.
func (pc *PowerController) Tick() {
	entries := pc.Schedules()
	if len(entries) == 0 {
		return
	}

	want := IsActive(entries, pc.Clock.Now())
	if pc.lastApplied != nil && *pc.lastApplied == want {
		return
	}

	if !pc.Commander.Available() {
		log.Printf("schedule: power control unavailable, skipping state change")
		return
	}
	if err := pc.Commander.SetPower(want); err != nil {
		log.Printf("schedule: failed to set display power to %v: %v", want, err)
		return
	}
	log.Printf("schedule: display power set to %v", want)
	pc.lastApplied = &want
}
