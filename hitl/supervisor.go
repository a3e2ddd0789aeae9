// Package hitl implements the human-in-the-loop fallback path: when a page
// cannot be cleared headlessly (a CAPTCHA, a login wall), it launches a
// visible browser, asks the operator for consent, waits for them to clear
// the challenge, then resumes automated extraction from the same tab.
package hitl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/corestack-dev/purify/blockdetect"
	"github.com/corestack-dev/purify/config"
)

// State is one stage of the HITL state machine, logged at each transition
// the same way scraper lifecycle steps are logged.
type State int

const (
	StateInitial State = iota
	StateVisibleBrowserLaunch
	StateInteraction
	StateChallengeDetection
	StateHitlTrigger
	StateUserActionCompletionDetection
	StateResumeAndExtract
	StateUnlocking
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateVisibleBrowserLaunch:
		return "visible_browser_launch"
	case StateInteraction:
		return "interaction"
	case StateChallengeDetection:
		return "challenge_detection"
	case StateHitlTrigger:
		return "hitl_trigger"
	case StateUserActionCompletionDetection:
		return "user_action_completion_detection"
	case StateResumeAndExtract:
		return "resume_and_extract"
	case StateUnlocking:
		return "unlocking"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

var (
	// ErrConsentRequired is returned when no TTY is attached and
	// AutoConsent is disabled, so no operator can be asked.
	ErrConsentRequired = errors.New("hitl: interactive consent required but no TTY attached")
	// ErrCancelled is returned when the operator declines the prompt.
	ErrCancelled = errors.New("hitl: user declined consent")
	// ErrTimeout is returned when the operator does not clear the
	// challenge within HumanTimeoutSeconds.
	ErrTimeout = errors.New("hitl: timed out waiting for human resolution")
)

// Result is the outcome of a supervised session: the final rendered HTML
// and title, captured after the operator clears the page.
type Result struct {
	HTML     string
	Title    string
	FinalURL string
}

// Supervisor drives the HITL state machine. Only one session runs at a time
// — launching a second visible browser while one is active would confuse
// the operator — enforced by a package-level mutex, mirroring the
// single-browser-instance discipline of scraper.Scraper.
type Supervisor struct {
	cfg        config.HITLConfig
	killSwitch InputController
}

var singleFlight sync.Mutex

// NewSupervisor creates a Supervisor from HITL configuration.
func NewSupervisor(cfg config.HITLConfig) *Supervisor {
	return &Supervisor{cfg: cfg, killSwitch: noopInputController{}}
}

// WithKillSwitch attaches an InputController the caller can trip to abort a
// running session (see killswitch.go). Returns s for chaining.
func (s *Supervisor) WithKillSwitch(k InputController) *Supervisor {
	s.killSwitch = k
	return s
}

func logState(s State) {
	slog.Info("hitl: state transition", "state", s.String())
}

// Run drives a single non-robot fetch session end to end: consent, visible
// browser launch, navigation, challenge polling, and extraction.
func (s *Supervisor) Run(ctx context.Context, targetURL string) (*Result, error) {
	if !singleFlight.TryLock() {
		return nil, errors.New("hitl: a session is already in progress")
	}
	defer singleFlight.Unlock()

	humanTimeout := time.Duration(s.cfg.HumanTimeoutSeconds) * time.Second
	if humanTimeout <= 0 {
		humanTimeout = 180 * time.Second
	}
	globalTimeout := humanTimeout + 30*time.Second
	ctx, cancel := context.WithTimeout(ctx, globalTimeout)
	defer cancel()

	sweepStaleProfileDirs()

	logState(StateInitial)
	if err := s.consent(targetURL); err != nil {
		return nil, err
	}

	logState(StateVisibleBrowserLaunch)
	browser, userDataDir, err := launchVisibleBrowser()
	if err != nil {
		return nil, fmt.Errorf("hitl: launch visible browser: %w", err)
	}
	defer func() {
		browser.MustClose()
		_ = os.RemoveAll(userDataDir)
	}()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("hitl: open page: %w", err)
	}
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("hitl: stealth injection failed", "error", err)
	}
	if err := injectFinishButton(page); err != nil {
		slog.Warn("hitl: finish-button injection failed", "error", err)
	}

	logState(StateInteraction)
	if err := page.Context(ctx).Navigate(targetURL); err != nil {
		return nil, fmt.Errorf("hitl: navigate: %w", err)
	}
	_ = page.Context(ctx).WaitDOMStable(500*time.Millisecond, 0.1)

	graceSeconds := s.cfg.ChallengeGraceSeconds
	if graceSeconds <= 0 {
		graceSeconds = 20
	}

	logState(StateChallengeDetection)
	blocked := s.pollChallenge(ctx, page, time.Duration(graceSeconds)*time.Second)

	if blocked {
		logState(StateHitlTrigger)
		slog.Info("hitl: challenge detected, waiting for operator", "url", targetURL)

		logState(StateUserActionCompletionDetection)
		if err := s.waitForResolution(ctx, page, humanTimeout); err != nil {
			return nil, err
		}
	}

	logState(StateResumeAndExtract)
	runJanitor(page)
	if s.cfg.AutoScroll {
		autoScroll(page, 8, 150*time.Millisecond)
	}
	settleDeadline := time.Now().Add(5 * time.Second)
	settleText(page, settleDeadline)

	html, err := page.Context(ctx).HTML()
	if err != nil {
		return nil, fmt.Errorf("hitl: extract html: %w", err)
	}
	title := ""
	if info, err := page.Info(); err == nil {
		title = info.Title
	}
	finalURL := targetURL
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	logState(StateUnlocking)
	logState(StateDone)

	return &Result{HTML: html, Title: title, FinalURL: finalURL}, nil
}

// pollChallenge polls blockdetect.Check on the live page every second for
// up to grace, returning whether a challenge is still present when it gives
// up.
func (s *Supervisor) pollChallenge(ctx context.Context, page *rod.Page, grace time.Duration) bool {
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		html, err := page.Context(ctx).HTML()
		if err == nil {
			title := ""
			if info, infoErr := page.Info(); infoErr == nil {
				title = info.Title
			}
			if blocked, reason := blockdetect.Check(html, title); blocked {
				slog.Debug("hitl: challenge still present", "reason", reason)
			} else {
				return false
			}
		}
		select {
		case <-ctx.Done():
			return true
		case <-time.After(time.Second):
		}
	}
	return true
}

// waitForResolution polls until either blockdetect.Check reports the page
// clear or the operator clicks the injected "Finish & Return" button, or
// until timeout/ctx cancellation.
func (s *Supervisor) waitForResolution(ctx context.Context, page *rod.Page, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.killSwitch.Tripped() {
			return ErrCancelled
		}
		if finished, err := page.Eval(finishButtonCheckJS); err == nil && finished.Value.Bool() {
			slog.Info("hitl: operator clicked Finish & Return")
			return nil
		}
		html, err := page.Context(ctx).HTML()
		if err == nil {
			title := ""
			if info, infoErr := page.Info(); infoErr == nil {
				title = info.Title
			}
			if blocked, _ := blockdetect.Check(html, title); !blocked {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ErrTimeout
		case <-time.After(2 * time.Second):
		}
	}
	return ErrTimeout
}

// consent asks the operator for permission before opening a visible browser.
// AutoConsent bypasses the prompt for CI/headless deployments; otherwise a
// TTY prompt is required since no GUI dialog dependency is wired in.
func (s *Supervisor) consent(targetURL string) error {
	if s.cfg.AutoConsent {
		slog.Info("hitl: auto-consent enabled, skipping prompt", "url", targetURL)
		return nil
	}
	fi, err := os.Stdin.Stat()
	if err != nil || (fi.Mode()&os.ModeCharDevice) == 0 {
		return ErrConsentRequired
	}

	fmt.Fprintf(os.Stderr, "\nhitl: %s needs manual verification. Open a visible browser? [y/N] ", targetURL)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	if line != "y" && line != "yes" {
		return ErrCancelled
	}
	return nil
}

// launchVisibleBrowser starts a non-headless Chrome instance in a dedicated
// temp profile directory so it never collides with the pooled headless
// browser's user-data-dir.
func launchVisibleBrowser() (*rod.Browser, string, error) {
	userDataDir, err := os.MkdirTemp("", profileDirPrefix+"*")
	if err != nil {
		return nil, "", err
	}
	if err := os.WriteFile(
		filepath.Join(userDataDir, profileLockFile),
		[]byte(strconv.Itoa(os.Getpid())),
		0o600,
	); err != nil {
		slog.Warn("hitl: failed to write profile lock file", "error", err)
	}

	l := launcher.New().
		Headless(false).
		UserDataDir(userDataDir)
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))

	controlURL, err := l.Launch()
	if err != nil {
		_ = os.RemoveAll(userDataDir)
		return nil, "", err
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		_ = os.RemoveAll(userDataDir)
		return nil, "", err
	}
	return browser, userDataDir, nil
}

// finishButtonCheckJS reads back the flag finishButtonJS's click handler
// sets.
const finishButtonCheckJS = `() => window.__purifyFinish === true`

// finishButtonJS installs a floating "Finish & Return" button on the page,
// re-injecting itself on every subsequent document via EvalOnNewDocument so
// it survives the navigations a challenge page tends to trigger.
const finishButtonJS = `() => {
	window.__purifyFinish = false;
	const inject = () => {
		if (document.getElementById('__purify_finish_btn')) return;
		const btn = document.createElement('button');
		btn.id = '__purify_finish_btn';
		btn.textContent = 'Finish & Return';
		btn.style.cssText = 'position:fixed;bottom:16px;right:16px;z-index:2147483647;' +
			'padding:10px 16px;background:#1a73e8;color:#fff;border:none;border-radius:6px;' +
			'font:14px sans-serif;cursor:pointer;box-shadow:0 2px 8px rgba(0,0,0,.3)';
		btn.addEventListener('click', () => { window.__purifyFinish = true; });
		document.documentElement.appendChild(btn);
	};
	if (document.readyState === 'loading') {
		document.addEventListener('DOMContentLoaded', inject);
	} else {
		inject();
	}
}`

// injectFinishButton arms the "Finish & Return" button as an alternative to
// blockdetect-based clearance: an operator who has resolved the challenge
// but whose page still trips blockdetect's heuristics can click through
// manually.
func injectFinishButton(page *rod.Page) error {
	_, err := page.EvalOnNewDocument(finishButtonJS)
	return err
}

const (
	// profileDirPrefix identifies temp profile directories created by
	// launchVisibleBrowser, so the sweep only ever touches its own.
	profileDirPrefix = "purify-hitl-"

	// profileLockFile records the PID of the process that created a
	// profile directory, letting a later sweep tell live sessions apart
	// from ones whose owning process crashed or was killed.
	profileLockFile = "purify.lock"

	// staleProfileAge is how old an unowned profile directory must be
	// before it's considered abandoned.
	staleProfileAge = 120 * time.Second
)

// sweepStaleProfileDirs removes leftover HITL temp profile directories from
// sessions whose browser process is no longer running. Only directories
// carrying the profileDirPrefix marker are ever touched, so this never
// reaches into an operator's regular browser profile.
func sweepStaleProfileDirs() {
	entries, err := os.ReadDir(os.TempDir())
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-staleProfileAge)
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), profileDirPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		dir := filepath.Join(os.TempDir(), entry.Name())
		if processAliveFromLockFile(filepath.Join(dir, profileLockFile)) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("hitl: failed to remove stale profile dir", "dir", dir, "error", err)
		} else {
			slog.Info("hitl: removed stale profile dir", "dir", dir)
		}
	}
}

// processAliveFromLockFile reports whether the PID recorded at path still
// names a running process. A missing, unreadable, or unparsable lock file
// is treated as "no live process", making the directory eligible for
// removal.
func processAliveFromLockFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
