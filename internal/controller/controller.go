package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/getlantern/systray"

	"voxbar/internal/addons"
	"voxbar/internal/bridge"
	"voxbar/internal/channel"
	"voxbar/internal/config"
	"voxbar/internal/icon"
	"voxbar/internal/launcher"
	"voxbar/internal/logger"
	"voxbar/internal/state"
)

// maxAddonSlots bounds the addons submenu; systray cannot remove
// items, so slots are pre-created and hidden when unused.
const maxAddonSlots = 16

// Controller is the menu-bar process: it polls the shared channel,
// reconciles state, renders the status glyph, and drives the menu.
type Controller struct {
	cfg        *config.Config
	log        logger.Logger
	reconciler *state.Reconciler
	channel    *channel.Channel
	poller     *channel.Poller
	renderer   *icon.Renderer
	animator   *icon.Animator
	registry   *addons.Registry
	launcher   *launcher.Launcher
	bridge     *bridge.Server
	service    *ServiceManager

	ctx    context.Context
	cancel context.CancelFunc

	statusItem  *systray.MenuItem
	toggleItem  *systray.MenuItem
	modeItems   map[state.Mode]*systray.MenuItem
	smartItem   *systray.MenuItem
	ttsItem     *systray.MenuItem
	startItem   *systray.MenuItem
	stopItem    *systray.MenuItem
	restartItem *systray.MenuItem
	addonsMenu  *systray.MenuItem
	addonSlots  []*addonSlot
}

type addonSlot struct {
	item *systray.MenuItem
	name string
}

func New(cfg *config.Config) *Controller {
	level := logger.ParseLevel(cfg.App.LogLevel)
	log := logger.New(level, "controller")

	rec := state.NewReconciler(time.Duration(cfg.App.DebounceMS)*time.Millisecond, logger.New(level, "reconciler"))
	ch := channel.New(cfg.Channel.StatusFile, cfg.Channel.CommandFile)
	poller := channel.NewPoller(ch, rec, time.Duration(cfg.Channel.PollMS)*time.Millisecond, logger.New(level, "poller"))
	registry := addons.NewRegistry(cfg.Addons.Root, config.AddonConfigPath(), ch, logger.New(level, "addons"))

	c := &Controller{
		cfg:        cfg,
		log:        log,
		reconciler: rec,
		channel:    ch,
		poller:     poller,
		renderer:   icon.NewRenderer(),
		registry:   registry,
		launcher:   launcher.New(config.LaunchPath(), logger.New(level, "launcher")),
		service:    NewServiceManager(cfg.Service.Command, rec, logger.New(level, "service")),
		modeItems:  map[state.Mode]*systray.MenuItem{},
	}
	c.animator = icon.NewAnimator(time.Duration(cfg.App.FrameMS)*time.Millisecond, c.onFrame)
	c.bridge = bridge.NewServer(cfg.Bridge.SocketPath, c, logger.New(level, "bridge"))
	return c
}

// bridge.Backend

func (c *Controller) State() state.SystemState { return c.reconciler.Current() }

func (c *Controller) SendCommand(tok string) error { return c.channel.Send(tok) }

func (c *Controller) AppConfig() *config.Config { return c.cfg }

func (c *Controller) Registry() *addons.Registry { return c.registry }

func (c *Controller) HotkeyPath() string { return config.HotkeyPath() }

func (c *Controller) LaunchPath() string { return config.LaunchPath() }

// Run blocks until the tray exits. The bridge socket binds first and
// acts as the single-instance guard.
func (c *Controller) Run() error {
	if err := c.bridge.Start(); err != nil {
		return fmt.Errorf("failed to start settings bridge: %w", err)
	}

	systray.Run(c.onReady, c.onExit)
	return nil
}

func (c *Controller) onReady() {
	c.ctx, c.cancel = context.WithCancel(context.Background())

	systray.SetTooltip("voxbar")
	c.setIcon(c.reconciler.Current(), 0)

	c.buildMenu()

	// seed user toggles from persisted config
	c.reconciler.SetTTS(c.cfg.UI.TTSEnabled)
	c.reconciler.SetSmartMode(c.cfg.UI.SmartMode)

	c.reconciler.OnChange(c.refresh)
	c.refresh(c.reconciler.Current())

	go c.poller.Run(c.ctx)

	if w, err := addons.NewWatcher(c.cfg.Addons.Root, c.rebuildAddons, c.log); err != nil {
		c.log.D("addons watcher unavailable: %v", err)
	} else {
		go w.Run(c.ctx)
	}

	if c.cfg.Service.AutoStart {
		if err := c.service.Start(); err != nil {
			c.log.E("failed to auto-start service: %v", err)
			c.reconciler.SetError(err.Error())
		}
	}

	c.log.I("controller ready")
}

func (c *Controller) onExit() {
	c.log.D("shutting down controller...")

	if c.cancel != nil {
		c.cancel()
	}
	c.animator.Stop()
	c.service.Stop()
	if err := c.bridge.Stop(); err != nil {
		c.log.E("failed to stop bridge: %v", err)
	}

	c.log.I("controller shutdown complete")
}

func (c *Controller) buildMenu() {
	c.statusItem = systray.AddMenuItem("Starting...", "Current state")
	c.statusItem.Disable()
	systray.AddSeparator()

	c.toggleItem = systray.AddMenuItem("Start Listening", "Toggle listening")
	c.clicked(c.toggleItem, c.onToggleListening)
	systray.AddSeparator()

	for _, m := range []struct {
		mode  state.Mode
		title string
	}{
		{state.ModeGeneral, "General"},
		{state.ModeMusic, "Music"},
		{state.ModeClaude, "Claude"},
	} {
		item := systray.AddMenuItemCheckbox(m.title, "Switch mode", false)
		c.modeItems[m.mode] = item
		mode := m.mode
		c.clicked(item, func() { c.onSelectMode(mode) })
	}
	systray.AddSeparator()

	c.smartItem = systray.AddMenuItemCheckbox("Smart Mode", "Commands-only interpretation", false)
	c.clicked(c.smartItem, c.onToggleSmart)
	c.ttsItem = systray.AddMenuItemCheckbox("Speech Output", "Toggle TTS", false)
	c.clicked(c.ttsItem, c.onToggleTTS)
	systray.AddSeparator()

	c.addonsMenu = systray.AddMenuItem("Addons", "Installed addons")
	for i := 0; i < maxAddonSlots; i++ {
		slot := &addonSlot{item: c.addonsMenu.AddSubMenuItemCheckbox("", "", false)}
		slot.item.Hide()
		c.addonSlots = append(c.addonSlots, slot)
		s := slot
		c.clicked(s.item, func() { c.onToggleAddon(s) })
	}
	reload := c.addonsMenu.AddSubMenuItem("Reload Addons", "Signal the service to reload addons")
	c.clicked(reload, c.onReloadAddons)
	c.rebuildAddons()
	systray.AddSeparator()

	c.startItem = systray.AddMenuItem("Start Service", "Start the voice service")
	c.clicked(c.startItem, c.onStartService)
	c.stopItem = systray.AddMenuItem("Stop Service", "Stop the voice service")
	c.clicked(c.stopItem, c.onStopService)
	c.restartItem = systray.AddMenuItem("Restart Service", "Restart the voice service")
	c.clicked(c.restartItem, c.onRestartService)
	systray.AddSeparator()

	quit := systray.AddMenuItem("Quit", "Quit voxbar")
	c.clicked(quit, systray.Quit)
}

// clicked dispatches a menu item's clicks to fn for the life of the
// controller.
func (c *Controller) clicked(item *systray.MenuItem, fn func()) {
	go func() {
		for range item.ClickedCh {
			fn()
		}
	}()
}

// refresh is the reconciler observer: it re-renders the glyph,
// re-checks menu items, pushes the snapshot to subscribed settings
// surfaces, and hands mode transitions to the launcher.
func (c *Controller) refresh(s state.SystemState) {
	c.bridge.NotifyState(s)
	c.launcher.ObserveState(s)

	visual := s.Visual()

	if visual.Animated() {
		c.animator.Start()
	} else {
		c.animator.Stop()
		c.setIcon(s, 0)
	}

	c.statusItem.SetTitle(statusTitle(s))

	if s.Listening {
		c.toggleItem.SetTitle("Stop Listening")
	} else {
		c.toggleItem.SetTitle("Start Listening")
	}

	for mode, item := range c.modeItems {
		if mode == s.Mode {
			item.Check()
		} else {
			item.Uncheck()
		}
	}

	setChecked(c.smartItem, s.SmartMode)
	setChecked(c.ttsItem, s.TTSEnabled)

	if c.service.Managed() {
		if s.ServiceRunning {
			c.startItem.Disable()
			c.stopItem.Enable()
		} else {
			c.startItem.Enable()
			c.stopItem.Disable()
		}
		c.restartItem.Enable()
	} else {
		c.startItem.Hide()
		c.stopItem.Hide()
		c.restartItem.Hide()
	}
}

func (c *Controller) onFrame(frame int) {
	c.setIcon(c.reconciler.Current(), frame)
}

func (c *Controller) setIcon(s state.SystemState, frame int) {
	systray.SetIcon(c.renderer.PNG(icon.Key{
		State: s.Visual(),
		Frame: frame,
		Mode:  s.Mode,
		Smart: s.SmartMode,
	}))
}

func statusTitle(s state.SystemState) string {
	switch s.Visual() {
	case state.VisualDisabled:
		return "Service stopped"
	case state.VisualError:
		return "Error: " + s.LastError
	case state.VisualSpeaking:
		return "Speaking"
	case state.VisualProcessing:
		return "Processing"
	case state.VisualListening:
		return fmt.Sprintf("Listening (%s)", s.Mode)
	default:
		return fmt.Sprintf("Idle (%s)", s.Mode)
	}
}

// menu actions

func (c *Controller) onToggleListening() {
	cur := c.reconciler.Current()
	c.reconciler.SetListening(!cur.Listening)
	if err := c.channel.Send(channel.CmdToggle); err != nil {
		c.log.E("failed to send toggle: %v", err)
	}
}

func (c *Controller) onSelectMode(mode state.Mode) {
	c.reconciler.SetMode(mode)
	if err := c.channel.Send(channel.ModeCommand(mode)); err != nil {
		c.log.E("failed to send mode change: %v", err)
	}
}

func (c *Controller) onToggleSmart() {
	cur := c.reconciler.Current()
	smart := !cur.SmartMode
	c.reconciler.SetSmartMode(smart)
	c.persistToggles(cur.TTSEnabled, smart)
}

func (c *Controller) onToggleTTS() {
	cur := c.reconciler.Current()
	tts := !cur.TTSEnabled
	c.reconciler.SetTTS(tts)
	c.persistToggles(tts, cur.SmartMode)
}

// persistToggles writes the toggles into the shared config and tells
// the service to re-read them.
func (c *Controller) persistToggles(tts, smart bool) {
	c.cfg.UI.TTSEnabled = tts
	c.cfg.UI.SmartMode = smart
	if err := config.SaveUI(tts, smart); err != nil {
		c.log.E("failed to persist toggles: %v", err)
	}
	if err := c.channel.Send(channel.CmdSyncTTS); err != nil {
		c.log.E("failed to send sync: %v", err)
	}
}

func (c *Controller) onStartService() {
	if err := c.channel.Send(channel.CmdStart); err != nil {
		c.log.E("failed to send start: %v", err)
	}
	if err := c.service.Start(); err != nil {
		c.log.E("failed to start service: %v", err)
		c.reconciler.SetError(err.Error())
	}
}

func (c *Controller) onStopService() {
	if err := c.channel.Send(channel.CmdStop); err != nil {
		c.log.E("failed to send stop: %v", err)
	}
	c.service.Stop()
}

func (c *Controller) onRestartService() {
	if err := c.service.Restart(); err != nil {
		c.log.E("failed to restart service: %v", err)
		c.reconciler.SetError(err.Error())
	}
}

func (c *Controller) onToggleAddon(slot *addonSlot) {
	if slot.name == "" {
		return
	}
	enabled := !slot.item.Checked()
	if err := c.registry.SetEnabled(slot.name, enabled); err != nil {
		c.log.E("failed to toggle addon %s: %v", slot.name, err)
		return
	}
	setChecked(slot.item, enabled)
	if err := c.channel.Send(channel.CmdReloadAddons); err != nil {
		c.log.E("failed to send reload: %v", err)
	}
}

func (c *Controller) onReloadAddons() {
	c.rebuildAddons()
	if err := c.channel.Send(channel.CmdReloadAddons); err != nil {
		c.log.E("failed to send reload: %v", err)
	}
}

// rebuildAddons refills the fixed submenu slots from discovery.
func (c *Controller) rebuildAddons() {
	list := c.registry.List()

	for i, slot := range c.addonSlots {
		if i < len(list) {
			d := list[i]
			slot.name = d.Name
			slot.item.SetTitle(d.DisplayName)
			slot.item.SetTooltip(d.Description)
			setChecked(slot.item, d.Enabled)
			slot.item.Show()
		} else {
			slot.name = ""
			slot.item.Hide()
		}
	}

	if len(list) > len(c.addonSlots) {
		c.log.W("%d addons exceed the %d menu slots", len(list), len(c.addonSlots))
	}
}

func setChecked(item *systray.MenuItem, checked bool) {
	if checked {
		item.Check()
	} else {
		item.Uncheck()
	}
}
