// Command solar-tracker drives a single-axis solar panel towards the brighter
// of two photoresistors and publishes diagnostic events to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/solar-tracker/internal/adc"
	"github.com/sweeney/solar-tracker/internal/clock"
	"github.com/sweeney/solar-tracker/internal/config"
	"github.com/sweeney/solar-tracker/internal/control"
	"github.com/sweeney/solar-tracker/internal/discovery"
	"github.com/sweeney/solar-tracker/internal/gpio"
	"github.com/sweeney/solar-tracker/internal/motor"
	"github.com/sweeney/solar-tracker/internal/mqtt"
	"github.com/sweeney/solar-tracker/internal/params"
	"github.com/sweeney/solar-tracker/internal/sensor"
	"github.com/sweeney/solar-tracker/internal/status"
	"github.com/sweeney/solar-tracker/internal/store"
	"github.com/sweeney/solar-tracker/internal/terminal"
	"github.com/sweeney/solar-tracker/internal/tracker"
	"github.com/sweeney/solar-tracker/internal/web"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// mockReading is the ADC value both simulated sensors report: bright and balanced.
const mockReading = 300

func main() {
	configPath := flag.String("config", "", "YAML configuration file (defaults are used when empty)")
	poll := flag.Duration("poll", 100*time.Millisecond, "Control loop interval")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	pinEast := flag.Int("pin-east", gpio.DefaultPinEast, "BCM pin number driving the motor east")
	pinWest := flag.Int("pin-west", gpio.DefaultPinWest, "BCM pin number driving the motor west")
	gpioBackend := flag.String("gpio", gpio.BackendCdev, "GPIO backend: cdev, rpio or fake")
	serialPort := flag.String("serial", "", "Serial device for the command terminal (stdin when empty)")
	printState := flag.Bool("print-state", false, "Print current sensor readings and exit")
	mock := flag.Bool("mock", false, "Run against simulated hardware")

	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}

	// Flags given explicitly override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "poll":
			cfg.Poll = *poll
		case "broker":
			cfg.MQTT.Broker = *broker
		case "heartbeat":
			cfg.MQTT.Heartbeat = *heartbeat
		case "http":
			cfg.HTTP.Addr = *httpAddr
		case "pin-east":
			cfg.GPIO.PinEast = *pinEast
		case "pin-west":
			cfg.GPIO.PinWest = *pinWest
		case "gpio":
			cfg.GPIO.Backend = *gpioBackend
		case "serial":
			cfg.Terminal.Serial = *serialPort
		}
	})
	if *mock {
		cfg.GPIO.Backend = gpio.BackendFake
		cfg.ADC.Backend = config.ADCFake
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid configuration: %v", err)
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// hardware holds the opened motor lines and sensor channels.
type hardware struct {
	pair gpio.Pair
	east sensor.AnalogReader
	west sensor.AnalogReader
	conv *adc.MCP3008 // nil when the ADC is simulated
}

func openHardware(cfg config.Config) (*hardware, error) {
	pair, err := gpio.Open(cfg.GPIO.Backend, cfg.GPIO.Chip, cfg.GPIO.PinEast, cfg.GPIO.PinWest)
	if err != nil {
		return nil, fmt.Errorf("init gpio: %w", err)
	}

	if cfg.ADC.Backend == config.ADCFake {
		return &hardware{
			pair: pair,
			east: adc.NewFakeChannel(mockReading),
			west: adc.NewFakeChannel(mockReading),
		}, nil
	}

	conv, err := adc.OpenMCP3008(cfg.ADC.SPIPort, cfg.ADC.SPIHz)
	if err != nil {
		pair.Close()
		return nil, fmt.Errorf("init adc: %w", err)
	}
	return &hardware{
		pair: pair,
		east: conv.Channel(cfg.ADC.EastChannel),
		west: conv.Channel(cfg.ADC.WestChannel),
		conv: conv,
	}, nil
}

// Close de-energizes the motor lines and releases the bus.
func (h *hardware) Close() error {
	var errs []error
	if err := h.pair.Close(); err != nil {
		errs = append(errs, fmt.Errorf("gpio: %w", err))
	}
	if h.conv != nil {
		if err := h.conv.Close(); err != nil {
			errs = append(errs, fmt.Errorf("adc: %w", err))
		}
	}
	return errors.Join(errs...)
}

func run(cfg config.Config, printState bool) error {
	hw, err := openHardware(cfg)
	if err != nil {
		return err
	}
	defer hw.Close()

	// Print state mode
	if printState {
		return printReadings(os.Stdout, hw, cfg.SensorConfig())
	}

	// Core components share one monotonic clock.
	src := clock.NewSystem()
	sensorCfg := cfg.SensorConfig()
	east := sensor.New("east", hw.east, src, sensorCfg)
	west := sensor.New("west", hw.west, src, sensorCfg)
	east.OnError = logSensorError
	west.OnError = logSensorError

	actuator := motor.New(hw.pair.East(), hw.pair.West(), src, cfg.MotorConfig())
	actuator.OnNotice = func(n motor.Notice, err error) {
		if err != nil {
			log.Printf("motor: %s: %v", n, err)
			return
		}
		log.Printf("motor: %s", n)
	}

	events := &eventQueue{}
	trk, err := tracker.New(east, west, actuator, src, events, cfg.TrackerConfig())
	if err != nil {
		return fmt.Errorf("init tracker: %w", err)
	}
	loop := control.New(east, west, actuator, trk)
	defer loop.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Parameters: stored values override the configured defaults.
	reg := params.New(trk, actuator)
	st, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		log.Printf("store: %v (parameters will not persist)", err)
		st = nil
	}
	if st != nil {
		defer st.Close()
		loadParams(ctx, reg, st)
	}

	// Initialize MQTT
	var publisher mqtt.Publisher = mqtt.Nop{}
	var mqttStatus mqtt.ConnectionStatus = mqtt.Nop{}
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher, mqttStatus = p, p
	}
	defer publisher.Close()

	// Initialize status board (before STARTUP so snapshot is available)
	board := status.NewBoard(time.Now(), status.Config{
		PollMs:      cfg.Poll.Milliseconds(),
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
		GPIOBackend: cfg.GPIO.Backend,
		ADCBackend:  cfg.ADC.Backend,
		Store:       cfg.Store.Backend,
		PinEast:     cfg.GPIO.PinEast,
		PinWest:     cfg.GPIO.PinWest,
	})
	if net := readNetworkInfo(); net != nil {
		board.SetNetwork(net)
	}
	board.Update(loop.Measurements(), loop.Status())
	board.SetParams(reg.Values())

	// Publish startup event with full status snapshot
	snap := board.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, board)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)

		if cfg.HTTP.Advertise {
			if adv, err := advertise(cfg.HTTP.Addr); err != nil {
				log.Printf("mdns: %v", err)
			} else {
				defer adv.Shutdown()
			}
		}
	}

	// Command terminal
	var lines chan string
	var out io.Writer = io.Discard
	if cfg.Terminal.Serial != "" {
		port, err := terminal.OpenSerial(cfg.Terminal.Serial, cfg.Terminal.Baud)
		if err != nil {
			return err
		}
		defer port.Close()
		lines, out = make(chan string), port
		go readTerminal(ctx, port, lines)
		log.Printf("terminal on %s at %d baud", cfg.Terminal.Serial, cfg.Terminal.Baud)
	} else if cfg.Terminal.Stdin {
		lines, out = make(chan string), os.Stdout
		go readTerminal(ctx, os.Stdin, lines)
	}
	term := terminal.New(loop, reg, st, out)

	log.Printf("started: poll=%v broker=%s heartbeat=%v gpio=%s adc=%s pins=%d/%d",
		cfg.Poll, cfg.MQTT.Broker, cfg.MQTT.Heartbeat, cfg.GPIO.Backend, cfg.ADC.Backend, cfg.GPIO.PinEast, cfg.GPIO.PinWest)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctx, loop, events, term, reg, publisher, mqttStatus, board, cfg.MQTT.Heartbeat, time.Now, ticker.C, lines, sigCh)
}

// runLoop owns every core component: ticks, terminal commands and the
// shutdown signal are all handled on this goroutine. now is called once per
// tick and that time stamps everything the tick produced.
func runLoop(ctx context.Context, loop *control.Loop, events *eventQueue, term *terminal.Terminal, reg *params.Registry, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, board *status.Board, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, lines <-chan string, sig <-chan os.Signal) error {
	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			loop.Stop()

			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			board.Update(loop.Measurements(), loop.Status())
			board.SetMQTTConnected(mqttStatus.IsConnected())
			snap := board.Snapshot()
			event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			term.Execute(ctx, line)
			board.SetParams(reg.Values())

		case <-tick:
			t := now()
			loop.Tick()

			for _, e := range events.drain() {
				logEvent(e)
				board.RecordEvent(e.Type, t)
				if err := publisher.Publish(mqtt.Event{Timestamp: t, Event: e}); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			// Update status board for HTTP consumers
			board.Update(loop.Measurements(), loop.Status())
			board.AddSample(t)
			board.SetMQTTConnected(mqttStatus.IsConnected())

			// Check for heartbeat
			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				st := loop.Status()
				log.Printf("heartbeat: state=%s motor=%s night=%v interlock_trips=%d",
					st.Tracker, st.Motor, st.Night, st.InterlockTrips)

				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					board.SetNetwork(net)
				}
				snap := board.Snapshot()
				hbEvent := mqtt.SystemEvent{
					Timestamp:  t,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

// eventQueue collects tracker events raised during a tick so they can be
// published after the tick completes.
type eventQueue struct {
	events []tracker.Event
}

func (q *eventQueue) Emit(e tracker.Event) {
	q.events = append(q.events, e)
}

func (q *eventQueue) drain() []tracker.Event {
	out := q.events
	q.events = nil
	return out
}

func logEvent(e tracker.Event) {
	switch e.Type {
	case tracker.EventStateChanged:
		log.Printf("event: %s %s -> %s", e.Type, e.From, e.To)
	case tracker.EventAdjustmentStarted, tracker.EventOvershootDetected, tracker.EventSuccessfulMovement:
		log.Printf("event: %s direction=%s east=%.0f west=%.0f", e.Type, e.Direction, e.East, e.West)
	default:
		log.Printf("event: %s state=%s brightness=%.0f", e.Type, e.State, e.Brightness)
	}
}

func logSensorError(name string, err error) {
	log.Printf("sensor: %s read error: %v", name, err)
}

// loadParams overlays stored parameters on the configured ones. A stored set
// that does not validate is ignored as a whole.
func loadParams(ctx context.Context, reg *params.Registry, st store.Store) {
	values, err := st.Load(ctx)
	if err != nil {
		log.Printf("store: load failed, using configured parameters: %v", err)
		return
	}
	if len(values) == 0 {
		return
	}
	if err := reg.Apply(values); err != nil {
		log.Printf("store: stored parameters rejected, using configured parameters: %v", err)
		return
	}
	log.Printf("store: loaded %d parameters", len(values))
}

func readTerminal(ctx context.Context, r io.Reader, lines chan<- string) {
	if err := terminal.ReadLines(ctx, r, lines); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("terminal: %v", err)
	}
}

func advertise(addr string) (*discovery.Advertiser, error) {
	port, err := discovery.PortFromAddr(addr)
	if err != nil {
		return nil, err
	}
	adv, err := discovery.Register(discovery.DefaultInstance(), port, discovery.TXT(version, "/index.json"))
	if err != nil {
		return nil, err
	}
	log.Printf("mdns: advertising %s on port %d", discovery.Service, port)
	return adv, nil
}

// printReadings samples both channels once and prints them.
func printReadings(w io.Writer, hw *hardware, cfg sensor.Config) error {
	cfg = cfg.WithDefaults()
	eastRaw, err := hw.east.ReadAnalog()
	if err != nil {
		return fmt.Errorf("read east sensor: %w", err)
	}
	westRaw, err := hw.west.ReadAnalog()
	if err != nil {
		return fmt.Errorf("read west sensor: %w", err)
	}
	fmt.Fprintf(w, "east: %d ohms (adc %d), west: %d ohms (adc %d)\n",
		sensor.Resistance(eastRaw, cfg.SeriesResistorOhms, cfg.MaxResistanceOhms), eastRaw,
		sensor.Resistance(westRaw, cfg.SeriesResistorOhms, cfg.MaxResistanceOhms), westRaw)
	return nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
