package memo

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/discochess/memo/archive"
)

// Archive returns the active archive.
func (c *Cache[A, V]) Archive() archive.Archive[V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Open replaces the active archive with a. A nil archive detaches the
// current one. The swap slot is left alone.
func (c *Cache[A, V]) Open(a archive.Archive[V]) {
	if a == nil {
		a = archive.NewNull[V]("")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = a
	c.logger.Debug("archive opened",
		zap.String("name", a.Name()),
		zap.Stringer("mode", a.Mode()),
	)
}

// Archived reports whether a non-null archive is active.
func (c *Cache[A, V]) Archived() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached()
}

// SetArchived turns archiving on or off by exchanging the active archive
// with the one held in reserve. Turning it on fails with ErrNoArchive when
// no archive has ever been set.
func (c *Cache[A, V]) SetArchived(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if on == c.attached() {
		return nil
	}
	if on && c.swap.Mode() == archive.ModeNull {
		return ErrNoArchive
	}
	c.active, c.swap = c.swap, c.active
	c.logger.Debug("archiving toggled", zap.Bool("on", on))
	return nil
}

// Drop detaches the active archive, keeping it in reserve so that
// SetArchived(true) can restore it.
func (c *Cache[A, V]) Drop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.attached() {
		if c.swap.Mode() == archive.ModeNull {
			return ErrNoArchive
		}
		return nil
	}
	c.swap = c.active
	c.active = archive.NewNull[V]("")
	return nil
}

// Load copies the given keys, or every key when none are given, from the
// archive into the table. Keys missing from the archive are skipped. Loaded
// keys are tracked by the eviction policy but do not trigger overflow.
func (c *Cache[A, V]) Load(keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(keys)
}

func (c *Cache[A, V]) loadLocked(keys []string) error {
	if len(keys) == 0 {
		var err error
		if keys, err = c.active.Keys(); err != nil {
			return fmt.Errorf("listing archive keys: %w", err)
		}
	}

	for _, k := range keys {
		if _, ok := c.loadOne(k); ok && c.policy != nil {
			c.policy.Admit(k)
		}
	}
	c.reportSize()
	return nil
}

// Dump copies the given keys, or the whole table when none are given, into
// the archive. Entries stay in the table. Write faults are logged and
// skipped since the archive is advisory.
func (c *Cache[A, V]) Dump(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dumpLocked(keys)
}

func (c *Cache[A, V]) dumpLocked(keys []string) {
	if len(keys) == 0 {
		for k, v := range c.entries {
			c.store(k, v)
		}
		return
	}
	for _, k := range keys {
		if v, ok := c.entries[k]; ok {
			c.store(k, v)
		}
	}
}

func (c *Cache[A, V]) store(key string, v V) {
	if err := c.active.Set(key, v); err != nil {
		c.logger.Warn("archive write failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// Sync reconciles the table and the archive. With clear set, the archive is
// emptied and then receives the table. Otherwise the table is dumped and the
// whole archive is loaded back.
func (c *Cache[A, V]) Sync(clear bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if clear {
		if err := c.active.Clear(); err != nil {
			return fmt.Errorf("clearing archive: %w", err)
		}
		c.dumpLocked(nil)
		return nil
	}
	c.dumpLocked(nil)
	return c.loadLocked(nil)
}

// attached reports whether the active archive can hold entries.
// Must be called with mu held.
func (c *Cache[A, V]) attached() bool {
	return c.active.Mode() != archive.ModeNull
}
