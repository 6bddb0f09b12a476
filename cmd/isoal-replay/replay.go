package main

import (
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rigado/isoal"
	"github.com/rigado/isoal/host"
	"github.com/rigado/isoal/metrics"
	"github.com/rigado/isoal/sessioncache"
	"github.com/rigado/isoal/trace"
	"github.com/urfave/cli"
)

var timingFlags = []string{"role", "bn", "ft", "sdu-interval", "iso-interval", "cis-sync-delay", "cig-sync-delay", "sdu-size-max"}

// output is one printed SDU.
type output struct {
	Label     string `json:"label"`
	Conn      uint16 `json:"conn"`
	Seqn      uint32 `json:"seqn"`
	Timestamp uint32 `json:"timestamp"`
	Status    string `json:"status"`
	Length    int    `json:"len"`
	Data      string `json:"data"`
}

func parseRole(s string) (isoal.Role, error) {
	switch strings.ToLower(s) {
	case "central", "c":
		return isoal.RoleCentral, nil
	case "peripheral", "p":
		return isoal.RolePeripheral, nil
	}
	return 0, errors.Errorf("unknown role %q", s)
}

func configFromFlags(c *cli.Context) (isoal.SinkConfig, error) {
	role, err := parseRole(c.String("role"))
	if err != nil {
		return isoal.SinkConfig{}, err
	}

	cfg := isoal.SinkConfig{
		Label:      c.String("label"),
		ConnHandle: uint16(c.Uint("conn")),
		Role:       role,
		Timing: isoal.Timing{
			BurstNumber:  uint8(c.Uint("bn")),
			FlushTimeout: uint8(c.Uint("ft")),
			SDUInterval:  uint32(c.Uint("sdu-interval")),
			ISOInterval:  uint16(c.Uint("iso-interval")),
			CISSyncDelay: uint32(c.Uint("cis-sync-delay")),
			CIGSyncDelay: uint32(c.Uint("cig-sync-delay")),
		},
		SDUSizeMax: c.Int("sdu-size-max"),
	}
	return cfg, nil
}

// resolveConfig prefers a cached config unless the timing was given on the
// command line, in which case the cache is updated.
func resolveConfig(c *cli.Context, log isoal.Logger) (isoal.SinkConfig, error) {
	cfg, err := configFromFlags(c)
	if err != nil {
		return cfg, err
	}

	path := c.String("session-cache")
	if path == "" {
		return cfg, nil
	}
	cache := sessioncache.New(path)

	explicit := false
	for _, f := range timingFlags {
		if c.IsSet(f) {
			explicit = true
		}
	}

	if !explicit {
		cached, err := cache.Load(cfg.ConnHandle)
		if err == nil {
			log.Infof("restored sink config for conn 0x%04x from %v", cfg.ConnHandle, path)
			return cached, nil
		}
		log.Debugf("no cached config: %v", err)
	}

	if err := cache.Store(cfg.ConnHandle, cfg, true); err != nil {
		return cfg, errors.Wrap(err, "can't store sink config")
	}
	return cfg, nil
}

func openSource(c *cli.Context) (trace.Source, io.Closer, error) {
	if port := c.String("serial"); port != "" {
		sp, err := trace.OpenSerial(trace.DefaultSerialOptions(port, c.Uint("baud")))
		if err != nil {
			return nil, nil, err
		}
		return trace.NewReader(sp), sp, nil
	}

	var in io.ReadCloser = os.Stdin
	if name := c.String("input"); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, nil, errors.Wrap(err, "can't open input")
		}
		in = f
	}

	switch c.String("format") {
	case "bin":
		return trace.NewReader(in), in, nil
	case "json":
		return trace.NewJSONReader(in), in, nil
	}
	in.Close()
	return nil, nil, errors.Errorf("unknown format %q", c.String("format"))
}

func serveMetrics(addr string, label string, s *isoal.Sink, log isoal.Logger) {
	reg := prometheus.NewRegistry()
	metrics.NewCollector(reg).Watch(label, s)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Errorf("metrics server: %v", err)
		}
	}()
}

func run(c *cli.Context) error {
	if c.Bool("verbose") {
		isoal.SetLogLevelMax()
	} else if err := isoal.SetLogLevel(c.String("log-level")); err != nil {
		return errors.Wrap(err, "bad --log-level")
	}
	log := isoal.GetLogger().ChildLogger(map[string]interface{}{"cmd": "replay"})

	cfg, err := resolveConfig(c, log)
	if err != nil {
		return err
	}
	if err := cfg.Timing.Validate(); err != nil {
		return errors.Wrap(err, "invalid timing")
	}

	src, closer, err := openSource(c)
	if err != nil {
		return err
	}
	defer closer.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		closer.Close()
	}()

	reg, err := isoal.NewRegistry(isoal.OptCapacity(1), isoal.OptLogger(log))
	if err != nil {
		return err
	}
	coll := host.New(c.Int("buf-size"))
	coll.Discard()

	h, st := reg.CreateFromConfig(cfg, coll)
	if st != isoal.StatusOK {
		return st.Err()
	}
	reg.Enable(h)

	if addr := c.String("metrics-addr"); addr != "" {
		serveMetrics(addr, cfg.Label, reg.Sink(h), log)
	}

	err = replay(src, reg, h, coll, cfg.Label, os.Stdout, log)

	s := reg.Stats(h)
	log.Infof("%d pdus, %d sdu buffers emitted, %d pdu errors, %d sequence errors",
		s.PDUs, s.SDUs, s.PDUErrors, s.SeqErrors)
	return err
}

// replay runs every PDU from src through sink h and writes each reassembled
// SDU to out.
func replay(src trace.Source, reg *isoal.Registry, h isoal.SinkHandle, coll *host.Collector, label string, out io.Writer, log isoal.Logger) error {
	var werr error
	coll.OnSDU(func(rec host.Record) {
		if werr != nil {
			return
		}
		b, err := jsoniter.Marshal(output{
			Label:     label,
			Conn:      rec.Conn,
			Seqn:      rec.Seqn,
			Timestamp: rec.Timestamp,
			Status:    rec.Status.String(),
			Length:    len(rec.Data),
			Data:      hex.EncodeToString(rec.Data),
		})
		if err == nil {
			_, err = out.Write(append(b, '\n'))
		}
		werr = err
	})

	for {
		pdu, err := src.Next()
		if err == io.EOF {
			return errors.Wrap(werr, "can't write sdu")
		}
		if err != nil {
			return err
		}

		if st := reg.Recombine(h, pdu); st != isoal.StatusOK {
			log.Warnf("pdu %d: %v", pdu.PayloadNumber, st)
		}
		if werr != nil {
			return errors.Wrap(werr, "can't write sdu")
		}
	}
}
