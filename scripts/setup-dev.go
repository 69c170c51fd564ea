package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/fatih/color"
)

type container struct {
	name string
	args []string
}

// Local dependencies for the optional integrations. The gateway runs
// without either of them: events are logged instead of published and
// the order ledger is disabled.
var services = []container{
	{
		name: "registration-redis",
		args: []string{"-p", "6379:6379", "redis:7-alpine"},
	},
	{
		name: "registration-kafka",
		args: []string{
			"-p", "9092:9092",
			"-e", "KAFKA_CFG_NODE_ID=0",
			"-e", "KAFKA_CFG_PROCESS_ROLES=controller,broker",
			"-e", "KAFKA_CFG_LISTENERS=PLAINTEXT://:9092,CONTROLLER://:9093",
			"-e", "KAFKA_CFG_ADVERTISED_LISTENERS=PLAINTEXT://localhost:9092",
			"-e", "KAFKA_CFG_LISTENER_SECURITY_PROTOCOL_MAP=CONTROLLER:PLAINTEXT,PLAINTEXT:PLAINTEXT",
			"-e", "KAFKA_CFG_CONTROLLER_QUORUM_VOTERS=0@localhost:9093",
			"-e", "KAFKA_CFG_CONTROLLER_LISTENER_NAMES=CONTROLLER",
			"-e", "KAFKA_CFG_AUTO_CREATE_TOPICS_ENABLE=true",
			"bitnami/kafka:3.6",
		},
	},
}

func main() {
	title := color.New(color.FgCyan, color.Bold)
	ok := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed)

	title.Println("Setting up registration gateway development environment")

	if err := exec.Command("docker", "info").Run(); err != nil {
		warn.Printf("Docker issue detected: %v\n", err)
		fmt.Println("You can still run without Kafka and Redis: KAFKA_ENABLED=false go run .")
		return
	}
	ok.Println("Docker is running")

	for _, svc := range services {
		if running(svc.name) {
			ok.Printf("%s already running\n", svc.name)
			continue
		}
		args := append([]string{"run", "-d", "--rm", "--name", svc.name}, svc.args...)
		cmd := exec.Command("docker", args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			bad.Printf("Failed to start %s: %v\n", svc.name, err)
			fmt.Println("Try: KAFKA_ENABLED=false go run .")
			os.Exit(1)
		}
		ok.Printf("Started %s\n", svc.name)
	}

	fmt.Println()
	title.Println("Add to your .env:")
	fmt.Println("  KAFKA_ENABLED=true")
	fmt.Println("  KAFKA_BROKERS=localhost:9092")
	fmt.Println("  REDIS_ADDR=localhost:6379")
	fmt.Println()
	fmt.Println("Check provider reachability with: go run ./cmd/connectivity")
}

func running(name string) bool {
	out, err := exec.Command("docker", "ps", "-q", "--filter", "name=^"+name+"$").Output()
	return err == nil && len(out) > 0
}
