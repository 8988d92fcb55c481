// Command routerd is the PWOSPF router daemon: it loads a bootstrap
// configuration, brings up one TAP port per configured hardware interface,
// and runs the forwarding/OSPF pipeline until signaled to stop — the same
// graceful-shutdown shape as the teacher's main.go, generalized from a
// single in-process Echo API server to an actual router process with an
// optional status server alongside it.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/config"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netdev"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/operator"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/packet"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/router"
)

func main() {
	configPath := flag.String("config", "router.yaml", "path to the router's YAML configuration")
	flag.Parse()

	logger := log.New(os.Stdout, "routerd: ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config %s: %v", *configPath, err)
	}

	driver := netdev.NewTUNDriver()
	for _, ic := range cfg.Interfaces {
		if ic.Type == "virtual" {
			continue
		}
		cidr := fmt.Sprintf("%s/%s", ic.IP, maskToPrefixLen(ic.Mask))
		if err := driver.AddPort(ic.Name, cidr, packet.EthernetMTU); err != nil {
			logger.Fatalf("bring up interface %s: %v", ic.Name, err)
		}
	}

	core, err := router.New(cfg, driver, logger)
	if err != nil {
		logger.Fatalf("build router: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := core.Start(ctx); err != nil {
		logger.Fatalf("start router: %v", err)
	}

	var statusServer *echo.Echo
	if cfg.Status.Enabled {
		statusServer = echo.New()
		operator.HTTPHandlers(core)(statusServer)
		go func() {
			logger.Printf("status server listening on %s", cfg.Status.Addr)
			if err := statusServer.Start(cfg.Status.Addr); err != nil && err != http.ErrServerClosed {
				logger.Printf("status server error: %v", err)
			}
		}()
	}

	go runOperatorConsole(core, cancel)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit
	logger.Printf("received signal %s, shutting down", sig)

	shutdown(core, statusServer, cancel, logger)
}

// runOperatorConsole feeds stdin lines to operator.Execute, the text
// protocol's local front-end; a remote/telnet front-end would call the
// same Execute against a net.Conn reader instead.
func runOperatorConsole(core *router.Router, cancel context.CancelFunc) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		reply, err := operator.Execute(core, line)
		if err == operator.ErrShutdown {
			fmt.Println(reply)
			cancel()
			return
		}
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Println(reply)
	}
}

func shutdown(core *router.Router, statusServer *echo.Echo, cancel context.CancelFunc, logger *log.Logger) {
	cancel()

	ctx, cancelTimeout := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelTimeout()

	if statusServer != nil {
		if err := statusServer.Shutdown(ctx); err != nil {
			logger.Printf("status server shutdown failed: %v", err)
		}
	}
	if err := core.Stop(); err != nil {
		logger.Printf("router stop: %v", err)
	}

	logger.Println("shut down gracefully")
}

// maskToPrefixLen converts a dotted-decimal mask to its CIDR prefix length
// for water/TAP device configuration, which speaks CIDR rather than the
// configuration file's dotted-decimal mask.
func maskToPrefixLen(mask string) string {
	parts := strings.Split(mask, ".")
	if len(parts) != 4 {
		return "32"
	}
	bits := 0
	for _, p := range parts {
		v, _ := strconv.Atoi(p)
		for v > 0 {
			bits += v & 1
			v >>= 1
		}
	}
	return strconv.Itoa(bits)
}
