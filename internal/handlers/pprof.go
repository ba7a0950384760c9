package handlers

import (
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterPprofRoutes registers profiling endpoints. Only wired when
// ENABLE_PPROF is set; the handlers block the calling goroutine while
// profiling.
func RegisterPprofRoutes(app *fiber.App) {
	profiling := app.Group("/debug/pprof")

	profiling.Get("/", pprofIndex)

	// Usage: curl .../debug/pprof/profile?seconds=30 > cpu.prof
	profiling.Get("/profile", pprofProfile)
	profiling.Get("/heap", pprofHeap)
	profiling.Get("/goroutine", pprofGoroutine)
	profiling.Get("/threadcreate", pprofThreadCreate)
	profiling.Get("/block", pprofBlock)
	profiling.Get("/mutex", pprofMutex)
	profiling.Get("/allocs", pprofAllocs)
}

func pprofIndex(c *fiber.Ctx) error {
	html := `<html><head><title>pprof</title></head><body>
	<h1>/debug/pprof/</h1>
	<p>Available profiles:</p>
	<ul>
	<li><a href="/debug/pprof/profile?seconds=30">30-second CPU profile</a></li>
	<li><a href="/debug/pprof/heap">heap profile</a></li>
	<li><a href="/debug/pprof/goroutine">goroutine profile</a></li>
	<li><a href="/debug/pprof/threadcreate">threadcreate profile</a></li>
	<li><a href="/debug/pprof/block">block profile</a></li>
	<li><a href="/debug/pprof/mutex">mutex profile</a></li>
	<li><a href="/debug/pprof/allocs">allocs profile</a></li>
	</ul>
	</body></html>`

	c.Set("Content-Type", "text/html")
	return c.SendString(html)
}

func pprofProfile(c *fiber.Ctx) error {
	seconds := c.QueryInt("seconds", 30)
	if seconds <= 0 || seconds > 300 {
		seconds = 30
	}

	c.Set("Content-Type", "application/octet-stream")
	c.Set("Content-Disposition", "attachment; filename=profile")

	if err := pprof.StartCPUProfile(c.Response().BodyWriter()); err != nil {
		return c.Status(500).SendString("Could not start CPU profile: " + err.Error())
	}

	time.Sleep(time.Duration(seconds) * time.Second)
	pprof.StopCPUProfile()

	return nil
}

func pprofHeap(c *fiber.Ctx) error {
	c.Set("Content-Type", "application/octet-stream")
	c.Set("Content-Disposition", "attachment; filename=heap")

	runtime.GC()

	if err := pprof.WriteHeapProfile(c.Response().BodyWriter()); err != nil {
		return c.Status(500).SendString("Could not write heap profile: " + err.Error())
	}

	return nil
}

func pprofGoroutine(c *fiber.Ctx) error {
	return writePprofProfile(c, "goroutine")
}

func pprofThreadCreate(c *fiber.Ctx) error {
	return writePprofProfile(c, "threadcreate")
}

func pprofBlock(c *fiber.Ctx) error {
	return writePprofProfile(c, "block")
}

func pprofMutex(c *fiber.Ctx) error {
	return writePprofProfile(c, "mutex")
}

func pprofAllocs(c *fiber.Ctx) error {
	return writePprofProfile(c, "allocs")
}

func writePprofProfile(c *fiber.Ctx, name string) error {
	profile := pprof.Lookup(name)
	if profile == nil {
		return c.Status(404).SendString("Profile not found: " + name)
	}

	c.Set("Content-Type", "application/octet-stream")
	c.Set("Content-Disposition", "attachment; filename="+name)

	if err := profile.WriteTo(c.Response().BodyWriter(), 0); err != nil {
		return c.Status(500).SendString("Could not write profile: " + err.Error())
	}

	return nil
}
