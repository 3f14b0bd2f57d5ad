package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"cronkeeper/internal/audit"
	"cronkeeper/internal/config"
	"cronkeeper/pkg/crontab"
	"cronkeeper/pkg/crontab/unix"
	"cronkeeper/pkg/crontab/windows"
	"cronkeeper/pkg/logx"
)

const usage = `usage: cronkeeper [-config file] <command> [args]

commands:
  list                          print managed entries
  add -interval SPEC CMD...     add an entry
  get ID                        print one entry
  rm [-command CMD|-interval SPEC|ID]
                                remove matching entries
  update ID [-command CMD] [-interval SPEC]
                                change one field
  dup ID SPEC                   duplicate an entry under a new interval
  count                         print the number of managed entries
  watch                         watch a file-backed store for external edits
`

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./cronkeeper.yaml", "path to config yaml/json")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	logCfg := logx.Config{Level: cfg.Log.Level, Console: true}
	if cfg.Log.Console != nil {
		logCfg.Console = *cfg.Log.Console
	}
	if cfg.Log.File != "" {
		logCfg.File = logx.FileConfig{Enabled: true, Path: cfg.Log.File}
	}
	logSvc, log := logx.New(logCfg)
	defer logSvc.Close()

	app, err := build(cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	defer app.close()

	if err := app.run(flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg     *config.Config
	log     logx.Logger
	manager *crontab.Manager
	file    *crontab.FileStore // non-nil for file-backed stores (watch)
	store   audit.Store
}

func build(cfg *config.Config, log logx.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	busy, _ := cfg.Audit.BusyTimeoutDuration()
	auditStore, err := audit.Open(audit.Config{
		Driver:      cfg.Audit.Driver,
		Path:        cfg.Audit.Path,
		BusyTimeout: busy,
	}, log)
	if err != nil {
		return nil, err
	}
	a.store = auditStore

	var backendOpts []crontab.BackendOption
	var managerOpts []crontab.Option
	managerOpts = append(managerOpts, crontab.WithLogger(log))
	if auditStore != nil {
		backendOpts = append(backendOpts, crontab.WithChecksumStore(audit.Checksums(auditStore, log)))
		managerOpts = append(managerOpts, crontab.WithRecorder(audit.Recorder(auditStore, log)))
	}

	var backend crontab.Backend
	switch strings.ToLower(cfg.Platform) {
	case "windows":
		if cfg.Store.Path == "" {
			return nil, fmt.Errorf("windows platform needs store.path (task document file)")
		}
		a.file = crontab.NewFileStore(cfg.Store.Path)
		backend = windows.New(a.file, log, backendOpts...)
	default:
		if strings.EqualFold(cfg.Store.Kind, "file") {
			a.file = crontab.NewFileStore(cfg.Store.Path)
			backend = unix.New(a.file, log, backendOpts...)
		} else {
			st := unix.NewCommandStore(log)
			st.Binary = cfg.Store.Binary
			st.User = cfg.Store.User
			backend = unix.New(st, log, backendOpts...)
		}
	}

	a.manager = crontab.NewManager(backend, managerOpts...)
	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

func (a *app) run(cmd string, args []string) error {
	switch cmd {
	case "list":
		return a.list()
	case "add":
		return a.add(args)
	case "get":
		return a.get(args)
	case "rm":
		return a.remove(args)
	case "update":
		return a.update(args)
	case "dup":
		return a.duplicate(args)
	case "count":
		return a.count()
	case "watch":
		return a.watch()
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) list() error {
	entries, err := a.manager.All()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tINTERVAL\tCOMMAND")
	for _, e := range entries {
		cmd := e.Command
		if e.Disabled() {
			cmd = "(disabled) " + cmd
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, e.Interval, cmd)
	}
	return w.Flush()
}

func (a *app) add(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	interval := fs.String("interval", "", "five-field schedule, e.g. \"0 2 * * *\"")
	comment := fs.String("comment", "", "optional comment stored with the entry")
	_ = fs.Parse(args)
	if *interval == "" || fs.NArg() == 0 {
		return fmt.Errorf("add needs -interval and a command")
	}

	meta := crontab.Metadata{}
	if *comment != "" {
		meta["comment"] = *comment
	}
	e, err := a.manager.Add(strings.Join(fs.Args(), " "), *interval, meta)
	if err != nil {
		return err
	}
	fmt.Println(e.ID)
	return nil
}

func (a *app) get(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("get needs exactly one id")
	}
	e, err := a.manager.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("id:       %s\ninterval: %s\ncommand:  %s\n", e.ID, e.Interval, e.Command)
	for _, k := range []string{"comment", crontab.MetaDisabled} {
		if v, ok := e.Metadata[k]; ok {
			fmt.Printf("%s: %s\n", k, v)
		}
	}
	return nil
}

func (a *app) remove(args []string) error {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	byCommand := fs.String("command", "", "remove entries with this exact command")
	byInterval := fs.String("interval", "", "remove entries with this exact interval")
	_ = fs.Parse(args)

	var (
		n   int
		err error
	)
	switch {
	case *byCommand != "":
		n, err = a.manager.DeleteByCommand(*byCommand)
	case *byInterval != "":
		n, err = a.manager.DeleteByInterval(*byInterval)
	case fs.NArg() == 1:
		n, err = a.manager.Delete(fs.Arg(0))
	default:
		return fmt.Errorf("rm needs an id, -command or -interval")
	}
	if err != nil {
		return err
	}
	fmt.Printf("removed %d\n", n)
	return nil
}

func (a *app) update(args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	command := fs.String("command", "", "new command")
	interval := fs.String("interval", "", "new five-field schedule")
	_ = fs.Parse(args)
	if fs.NArg() != 1 || (*command == "" && *interval == "") {
		return fmt.Errorf("update needs an id and -command or -interval")
	}
	id := fs.Arg(0)

	if *command != "" {
		if _, err := a.manager.UpdateCommand(id, *command); err != nil {
			return err
		}
	}
	if *interval != "" {
		if _, err := a.manager.UpdateInterval(id, *interval); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) duplicate(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("dup needs an id and a new interval")
	}
	e, err := a.manager.Duplicate(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Println(e.ID)
	return nil
}

func (a *app) count() error {
	n, err := a.manager.Count()
	if err != nil {
		return err
	}
	fmt.Println(n)
	return nil
}

func (a *app) watch() error {
	if a.file == nil {
		return fmt.Errorf("watch needs a file-backed store (store.kind=file)")
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.log.Info("watching native store", logx.String("path", a.file.Path))
	return a.file.Watch(ctx, func() {
		n, err := a.manager.Count()
		if err != nil {
			a.log.Error("reload after external edit failed", logx.Err(err))
			return
		}
		a.log.Info("native store changed", logx.Int("entries", n))
	})
}
