package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solarview/internal/api"
	"solarview/internal/config"
	"solarview/internal/control"
	"solarview/internal/events"
	"solarview/internal/history"
	"solarview/internal/inverter"
	"solarview/internal/regulator"
	"solarview/internal/storage"
	"solarview/internal/telemetry"
)

// Version is set at build time via -ldflags "-X main.Version=vX.Y.Z"
var Version = "dev"

// readyTimeout bounds how long startup waits for the first telemetry values
// before the control loop starts anyway.
const readyTimeout = 30 * time.Second

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	// Load configuration from .env file
	cfg, err := config.Load(".env")
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Printf("Configuration loaded: %s", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Settings database
	store, err := storage.NewBoltStore(cfg.DBPath())
	if err != nil {
		logger.Fatalf("Failed to open settings database: %v", err)
	}
	defer store.Close()

	// Inverter
	inv := inverter.NewSunSpec(inverter.Config{
		Device:  cfg.InverterDevice(),
		Baud:    cfg.InverterBaud(),
		SlaveID: byte(cfg.InverterSlaveID()),
		Timeout: cfg.InverterTimeout(),
	}, logger)

	if !inv.CheckConnection(ctx) {
		logger.Fatalf("Inverter not reachable on %s", cfg.InverterDevice())
	}
	serial, err := inv.SerialNumber(ctx)
	if err != nil {
		logger.Fatalf("Failed to read inverter serial number: %v", err)
	}
	logger.Printf("Connected to inverter %s", serial)

	eventStore := events.NewStore(100)

	// Sensor gateway
	stream, err := telemetry.NewStream(telemetry.Config{
		Broker:         cfg.MQTTBroker(),
		ClientID:       cfg.MQTTClientID(),
		Username:       cfg.MQTTUsername(),
		Password:       cfg.MQTTPassword(),
		Prefix:         cfg.MQTTPrefix(),
		UseTLS:         cfg.MQTTUseTLS(),
		StaleTimeout:   cfg.StaleTimeout(),
		ReconnectDelay: cfg.ReconnectDelay(),
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to create telemetry stream: %v", err)
	}
	defer stream.Stop()

	stream.OnReconnect(func() {
		eventStore.Add(events.EventGatewayReconnect, "", "", true, "no updates within stale timeout")
	})

	if err := stream.EnsureReady(ctx, readyTimeout); err != nil {
		if errors.Is(err, telemetry.ErrNoEntities) {
			logger.Fatalf("Gateway reported no entities; check the topic prefix %q", cfg.MQTTPrefix())
		}
		logger.Fatalf("Failed to connect to sensor gateway: %v", err)
	}

	// Regulator and control loop
	reg := regulator.New(regulator.Settings{
		PeakProductionW: cfg.PeakProduction(),
		MinProductionW:  cfg.MinProduction(),
		MaxExportW:      cfg.MaxExport(),
		MaxDeltaPercent: cfg.MaxDeltaPercent(),
		CyclePeriod:     cfg.CyclePeriod(),
		Gain:            cfg.Gain(),
		LowPVThresholdW: cfg.LowPVThreshold(),
	}, logger)

	loop := control.NewLoop(control.Config{
		CyclePeriod:   cfg.CyclePeriod(),
		GridImportKey: cfg.GridImportKey(),
		GridExportKey: cfg.GridExportKey(),
	}, stream, inv, reg, store, logger)

	ring := history.NewRing(cfg.HistoryLength())

	server := api.NewServer(cfg, stream, loop, store, ring, eventStore, Version, logger)

	loop.RecordEvents(eventStore)
	loop.OnCycle(func(sample history.Sample) {
		server.BroadcastSample(ring.Add(sample))
	})

	// HTTP server
	addr := cfg.Addr()
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
	}

	go func() {
		fmt.Printf("SolarView %s starting on %s\n", Version, addr)
		if cfg.NoAuth() {
			fmt.Println("WARNING: Authentication is DISABLED!")
		}
		printAccessURLs(cfg)

		var err error
		if cfg.TLSEnabled() {
			if cfg.TLSAutoGenerate() {
				if genErr := api.EnsureCertificate(cfg.TLSCertFile(), cfg.TLSKeyFile()); genErr != nil {
					logger.Fatalf("Failed to prepare TLS certificate: %v", genErr)
				}
			}
			err = httpServer.ListenAndServeTLS(cfg.TLSCertFile(), cfg.TLSKeyFile())
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Control loop blocks until shutdown
	loop.Run(ctx)

	// Shutdown: lift the output limit so a stopped controller never leaves
	// the inverter capped.
	logger.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := inv.RestoreDefaults(shutdownCtx); err != nil {
		logger.Printf("Failed to restore inverter defaults: %v", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown: %v", err)
	}
}

// getLocalIPs returns all local IPv4 addresses
func getLocalIPs() []string {
	var ips []string

	interfaces, err := net.Interfaces()
	if err != nil {
		return ips
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}

			if ip == nil || ip.IsLoopback() || ip.To4() == nil {
				continue
			}

			ips = append(ips, ip.String())
		}
	}

	return ips
}

// printAccessURLs prints all available access URLs
func printAccessURLs(cfg *config.Config) {
	scheme := "http"
	if cfg.TLSEnabled() {
		scheme = "https"
	}

	_, port, err := net.SplitHostPort(cfg.Addr())
	if err != nil {
		port = cfg.Addr()
	}

	ips := getLocalIPs()
	if len(ips) == 0 {
		fmt.Printf("\nOpen %s://localhost:%s in your browser\n", scheme, port)
		return
	}

	fmt.Println("\nAccess URLs:")
	for _, ip := range ips {
		fmt.Printf("  %s://%s:%s\n", scheme, ip, port)
	}
	fmt.Println()
}
