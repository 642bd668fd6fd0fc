package agent

import (
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/kriyahq/kriya/action"
	"github.com/kriyahq/kriya/config"
	"github.com/kriyahq/kriya/engine"
	"github.com/kriyahq/kriya/logger"
	"github.com/kriyahq/kriya/notify"
	"github.com/kriyahq/kriya/persistence"
	fsstore "github.com/kriyahq/kriya/persistence/fs"
	redisstore "github.com/kriyahq/kriya/persistence/redis"
	"github.com/kriyahq/kriya/rest"
	"github.com/kriyahq/kriya/trigger"
	"go.uber.org/zap"
)

// Agent is the composition root: it wires storage, the engine, the trigger
// registry and the http surface from one Config.
type Agent struct {
	Config config.Config

	workflowStorage persistence.WorkflowStorage
	triggerStorage  persistence.TriggerStorage
	notifier        *notify.Notifier
	engine          *engine.Service
	triggers        *trigger.Registry
	httpServer      *rest.Server

	shutdown     bool
	shutdownLock sync.Mutex
}

func New(conf config.Config) (*Agent, error) {
	a := &Agent{Config: conf}
	setup := []func() error{
		a.setupStorage,
		a.setupNotifier,
		a.setupEngine,
		a.setupTriggers,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupStorage() error {
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_REDIS:
		rdConf := redisstore.Config{
			Addrs:     a.Config.RedisConfig.Addrs,
			Namespace: a.Config.RedisConfig.Namespace,
		}
		a.workflowStorage = redisstore.NewWorkflowStorage(rdConf)
		a.triggerStorage = redisstore.NewTriggerStorage(rdConf)
	default:
		a.workflowStorage = fsstore.NewWorkflowStorage(a.Config.DataDir)
		a.triggerStorage = fsstore.NewTriggerStorage(a.Config.DataDir)
	}
	return nil
}

func (a *Agent) setupNotifier() error {
	var bus *notify.Bus
	if a.Config.BusTopic != "" && len(a.Config.RedisConfig.Addrs) > 0 {
		bus = notify.NewBus(a.Config.RedisConfig.Addrs, a.Config.BusTopic)
	}
	a.notifier = notify.NewNotifier(bus, notify.NewLoggingObserver())
	return nil
}

func (a *Agent) setupEngine() error {
	scriptConf := a.Config.ScriptConfig
	interpreter := scriptConf.Interpreter
	if interpreter == "" {
		interpreter = "python3"
	}
	killGrace := time.Duration(scriptConf.KillGraceSeconds) * time.Second
	if killGrace <= 0 {
		killGrace = config.DefaultKillGraceSeconds * time.Second
	}
	installer := action.NewInstaller(scriptConf.InstallCommand)
	execLog := action.NewExecLog(filepath.Join(a.Config.DataDir, "logs"))
	scripts := action.NewScriptExecutor(interpreter, installer, execLog, killGrace)
	prompts := action.NewHTTPPromptRunner(a.Config.PromptConfig.Endpoint)
	a.engine = engine.NewService(a.workflowStorage, a.notifier, a.Config.DataDir, prompts, scripts, a.Config.MaxChainDepth)
	return nil
}

func (a *Agent) setupTriggers() error {
	a.triggers = trigger.NewRegistry(a.triggerStorage, a.engine)
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.engine, a.triggers)
	return err
}

func (a *Agent) Start() error {
	go func() {
		if err := a.httpServer.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", zap.Error(err))
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	return a.httpServer.Stop()
}
