// Service manager integration using github.com/kardianos/service.
//
// The analyzer can run as a system service (systemd, Windows Service, launchd)
// in addition to running interactively. Service control commands are handled
// by HandleServiceCommand before the server starts.
package main

import (
	"fmt"
	"os"

	"github.com/kardianos/service"
)

// Program implements service.Interface by wrapping run().
type Program struct {
	exit chan struct{}
	code int
}

// Start launches the server in a goroutine; the service manager expects Start
// to return promptly.
func (p *Program) Start(s service.Service) error {
	p.exit = make(chan struct{})
	go func() {
		defer close(p.exit)
		p.code = run()
	}()
	return nil
}

// Stop asks the server to shut down and waits for run() to return. The
// shutdown manager inside run() reacts to the SIGTERM the service manager
// sends alongside Stop.
func (p *Program) Stop(s service.Service) error {
	<-p.exit
	if p.code != 0 {
		return fmt.Errorf("server exited with code %d", p.code)
	}
	return nil
}

// ServiceConfig describes the installed service.
func ServiceConfig() *service.Config {
	return &service.Config{
		Name:        "mcp-analyzer",
		DisplayName: "MCP Code Analyzer",
		Description: "Code analysis API with AI-assisted explanations and runtime monitoring",
		Option: service.KeyValue{
			"StartType": "automatic",
		},
	}
}

// RunAsService runs under the service manager when not attached to a
// terminal. Returns false immediately when running interactively.
func RunAsService() (bool, error) {
	prg := &Program{}
	s, err := service.New(prg, ServiceConfig())
	if err != nil {
		return false, fmt.Errorf("failed to create service: %w", err)
	}
	if service.Interactive() {
		return false, nil
	}
	if err := s.Run(); err != nil {
		return true, fmt.Errorf("service run failed: %w", err)
	}
	return true, nil
}

// HandleServiceCommand dispatches service control commands. Returns false when
// the argument is not a service command and normal startup should proceed.
func HandleServiceCommand(cmd string) (bool, error) {
	switch cmd {
	case "install", "uninstall", "start", "stop", "restart":
	case "status":
		return true, printServiceStatus()
	case "help", "-h", "--help":
		printUsage()
		return true, nil
	default:
		return false, nil
	}

	s, err := service.New(&Program{}, ServiceConfig())
	if err != nil {
		return true, fmt.Errorf("failed to create service: %w", err)
	}
	if err := service.Control(s, cmd); err != nil {
		return true, fmt.Errorf("failed to %s service: %w", cmd, err)
	}
	fmt.Printf("Service %s completed\n", cmd)
	return true, nil
}

func printServiceStatus() error {
	s, err := service.New(&Program{}, ServiceConfig())
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	status, err := s.Status()
	if err != nil {
		return fmt.Errorf("failed to query service status: %w", err)
	}
	switch status {
	case service.StatusRunning:
		fmt.Println("Service is running")
	case service.StatusStopped:
		fmt.Println("Service is stopped")
	default:
		fmt.Println("Service status unknown")
	}
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [command]

Commands:
  install     Install as a system service
  uninstall   Remove the system service
  start       Start the installed service
  stop        Stop the installed service
  restart     Restart the installed service
  status      Show the service status
  help        Show this help

Run without a command to start the server in the foreground.
`, os.Args[0])
}
