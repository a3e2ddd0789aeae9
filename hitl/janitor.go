package hitl

import (
	"time"

	"github.com/go-rod/rod"
)

// runJanitor clears the chrome an operator shouldn't have to deal with
// before extraction resumes: cookie/consent banners, popups, and any
// overflow lock the page left on <body>. Mirrors scraper.removeOverlays'
// selector-and-z-index heuristic, plus auto-accepting the common
// cookie/modal buttons HITL pages tend to show.
func runJanitor(p *rod.Page) {
	const js = `() => {
		const acceptWords = ['accept', 'agree', 'got it', 'ok', 'allow', 'continue', 'close'];
		document.querySelectorAll('button, a[role="button"]').forEach(btn => {
			const text = (btn.innerText || '').trim().toLowerCase();
			if (acceptWords.some(w => text === w || text.startsWith(w))) {
				try { btn.click(); } catch (e) {}
			}
		});

		const els = document.querySelectorAll('*');
		for (const el of els) {
			const style = window.getComputedStyle(el);
			if (style.position === 'fixed' || style.position === 'sticky') {
				const z = parseInt(style.zIndex, 10);
				if (z >= 900 || style.zIndex === 'auto') {
					el.remove();
				}
			}
		}
		const selectors = [
			'[class*="cookie"]', '[class*="consent"]', '[class*="overlay"]',
			'[id*="cookie"]', '[id*="consent"]', '[id*="overlay"]',
			'[class*="popup"]', '[id*="popup"]', '[class*="modal"]',
		];
		for (const sel of selectors) {
			document.querySelectorAll(sel).forEach(el => {
				const style = window.getComputedStyle(el);
				if (style.position === 'fixed' || style.position === 'sticky' || style.position === 'absolute') {
					el.remove();
				}
			});
		}
		document.documentElement.style.overflow = '';
		document.body.style.overflow = '';
	}`
	_, _ = p.Eval(js)
}

// autoScroll scrolls the page to the bottom in small steps so lazy-loaded
// content mounts before HTML capture, pausing briefly between steps to let
// the page's own scroll listeners fire.
func autoScroll(p *rod.Page, steps int, pause time.Duration) {
	const js = `(y) => window.scrollBy(0, y)`
	for i := 0; i < steps; i++ {
		_, _ = p.Eval(js, 800)
		time.Sleep(pause)
	}
	_, _ = p.Eval(`() => window.scrollTo(0, 0)`)
}

// settleText polls document.body.innerText length until it stops growing
// for two consecutive samples or the deadline passes, approximating
// network-idle + hydration settlement without a CDP network listener.
func settleText(p *rod.Page, deadline time.Time) {
	const js = `() => document.body ? document.body.innerText.length : 0`
	prev := -1
	stable := 0
	for time.Now().Before(deadline) {
		res, err := p.Eval(js)
		if err != nil {
			return
		}
		cur := res.Value.Int()
		if cur == prev {
			stable++
			if stable >= 2 {
				return
			}
		} else {
			stable = 0
		}
		prev = cur
		time.Sleep(300 * time.Millisecond)
	}
}
