package core

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	nkerrors "github.com/nodalcore/numakv/internal/errors"
	"github.com/nodalcore/numakv/internal/migrate"
	"github.com/nodalcore/numakv/internal/placement"
)

// Dispatch implements §6's outbound admin command surface: a single
// line-oriented command in, a short success string or structured data out,
// error otherwise. It is a thin adapter over the programmatic API above —
// every admin verb here is one or two calls into Context's fields.
func (c *Context) Dispatch(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nkerrors.Invalid("empty command", nil)
	}

	switch fields[0] {
	case "config":
		return c.dispatchConfig(fields[1:])
	case "migrate":
		return c.dispatchMigrate(fields[1:])
	case "slot":
		return c.dispatchSlot(fields[1:])
	default:
		return "", nkerrors.Invalid("unknown subcommand", map[string]interface{}{"verb": fields[0]})
	}
}

func (c *Context) dispatchConfig(args []string) (string, error) {
	if len(args) == 0 {
		return "", nkerrors.Invalid("config requires a subcommand", nil)
	}
	switch args[0] {
	case "get":
		return c.configGet(), nil
	case "set":
		return c.configSet(args[1:])
	case "stats":
		return c.configStats(), nil
	case "rebalance":
		return c.configRebalance(), nil
	default:
		return "", nkerrors.Invalid("unknown subcommand", map[string]interface{}{"verb": "config " + args[0]})
	}
}

func (c *Context) configGet() string {
	nodes := c.Nodes.Nodes()
	weights := make([]string, len(nodes))
	for i, n := range nodes {
		weights[i] = fmt.Sprintf("%d:%d", n.ID, atomic.LoadInt64(&n.Weight))
	}
	return fmt.Sprintf("nodes=%d weights=[%s]", c.Nodes.Len(), strings.Join(weights, ","))
}

// configSet implements §6's `config set <param> <value>` over the
// documented parameter set: strategy, cxl_optimization, balance_threshold,
// weight <node> <value>.
func (c *Context) configSet(args []string) (string, error) {
	if len(args) < 2 {
		return "", nkerrors.Invalid("config set requires a parameter and a value", nil)
	}
	param := args[0]
	switch param {
	case "strategy":
		if err := c.Placement.SetStrategy(placement.Strategy(args[1])); err != nil {
			return "", err
		}
		return "OK", nil
	case "cxl_optimization":
		enabled, ok := parseOnOff(args[1])
		if !ok {
			return "", nkerrors.Invalid("cxl_optimization accepts on/off/yes/no/1/0", map[string]interface{}{"value": args[1]})
		}
		c.Placement.SetCXLOptimised(enabled)
		return "OK", nil
	case "balance_threshold":
		pct, err := strconv.ParseFloat(args[1], 64)
		if err != nil || pct < 0 || pct > 100 {
			return "", nkerrors.Invalid("balance_threshold must be a percentage 0..100", map[string]interface{}{"value": args[1]})
		}
		c.Placement.SetBalanceThreshold(pct / 100)
		return "OK", nil
	case "weight":
		if len(args) < 3 {
			return "", nkerrors.Invalid("weight requires a node and a value", nil)
		}
		node, err1 := strconv.Atoi(args[1])
		weight, err2 := strconv.ParseInt(args[2], 10, 64)
		if err1 != nil || err2 != nil || weight < 0 || weight > 1000 {
			return "", nkerrors.Invalid("weight requires a node id and a value 0..1000", map[string]interface{}{"node": args[1], "weight": args[2]})
		}
		if !c.Nodes.SetWeight(node, weight) {
			return "", nkerrors.Invalid("invalid target node", map[string]interface{}{"node": node})
		}
		return "OK", nil
	default:
		return "", nkerrors.Invalid("unknown configuration parameter", map[string]interface{}{"param": param})
	}
}

func parseOnOff(v string) (value bool, ok bool) {
	switch strings.ToLower(v) {
	case "on", "yes", "1":
		return true, true
	case "off", "no", "0":
		return false, true
	default:
		return false, false
	}
}

func (c *Context) configStats() string {
	a := c.Alloc.Snapshot()
	m := c.Migrate.Snapshot()
	h := c.Tracker.Snapshot()
	return fmt.Sprintf(
		"alloc(allocations=%d frees=%d failures=%d bytes_outstanding=%d) "+
			"migrate(total=%d successful=%d failed=%d) "+
			"hotness(heat_updates=%d migrations_queued=%d decay_operations=%d pending_expired=%d)",
		a.Allocations, a.Frees, a.Failures, a.BytesOutstanding,
		m.Total, m.Successful, m.Failed,
		h.HeatUpdates, h.MigrationsQueued, h.DecayOperations, h.PendingExpired,
	)
}

func (c *Context) configRebalance() string {
	if !c.Placement.ShouldRebalance() {
		return "no rebalance needed"
	}
	return fmt.Sprintf("rebalance: prefer node %d", c.Placement.PreferredLightNode())
}

// dispatchMigrate implements §6's `migrate key/db/stats/reset/info`.
func (c *Context) dispatchMigrate(args []string) (string, error) {
	if len(args) == 0 {
		return "", nkerrors.Invalid("migrate requires a subcommand", nil)
	}
	switch args[0] {
	case "key":
		return c.migrateKeyCmd(args[1:])
	case "db":
		return c.migrateDBCmd(args[1:])
	case "stats":
		return c.configStats(), nil
	case "reset":
		c.Migrate.Reset()
		return "OK", nil
	case "info":
		return c.migrateInfoCmd(args[1:])
	default:
		return "", nkerrors.Invalid("unknown subcommand", map[string]interface{}{"verb": "migrate " + args[0]})
	}
}

func (c *Context) migrateKeyCmd(args []string) (string, error) {
	if len(args) != 2 {
		return "", nkerrors.Invalid("migrate key requires a key and a target node", nil)
	}
	node, err := strconv.Atoi(args[1])
	if err != nil {
		return "", nkerrors.Invalid("invalid target node", map[string]interface{}{"node": args[1]})
	}
	if err := c.ensureNodeRange(node); err != nil {
		return "", err
	}
	result := c.Migrate.MigrateValue(c.Store, args[0], node)
	return resultToString(result)
}

func (c *Context) migrateDBCmd(args []string) (string, error) {
	if len(args) != 1 {
		return "", nkerrors.Invalid("migrate db requires a target node", nil)
	}
	node, err := strconv.Atoi(args[0])
	if err != nil {
		return "", nkerrors.Invalid("invalid target node", map[string]interface{}{"node": args[0]})
	}
	if err := c.ensureNodeRange(node); err != nil {
		return "", err
	}
	result := c.Migrate.MigrateAll(c.Store, node)
	return resultToString(result)
}

func resultToString(r migrate.Result) (string, error) {
	switch r {
	case migrate.ResultOK:
		return "OK", nil
	case migrate.ResultNotFound:
		return "", nkerrors.NotFound("key not found", nil)
	case migrate.ResultOutOfMemory:
		return "", nkerrors.OutOfMemory("migration target exhausted", nil)
	case migrate.ResultUnsupportedKind:
		return "", nkerrors.UnsupportedKind("value")
	default:
		return "", nkerrors.Invalid("migration request rejected", nil)
	}
}

// migrateInfoCmd implements §6's `migrate info <key>`, returning kind,
// current node, hotness, access count, the number of available nodes, and
// the caller's own CPU node.
func (c *Context) migrateInfoCmd(args []string) (string, error) {
	if len(args) != 1 {
		return "", nkerrors.Invalid("migrate info requires a key", nil)
	}
	key := args[0]
	val, ok := c.Store.Get(key)
	if !ok {
		return "", nkerrors.NotFound("key not found", map[string]interface{}{"key": key})
	}
	rec, _ := c.Tracker.Lookup(key)
	return fmt.Sprintf(
		"kind=%s current_node=%d hotness=%d access_count=%d available_nodes=%d caller_node=%d",
		val.Kind(), rec.CurrentNode, rec.Hotness, rec.AccessCount, c.Nodes.Len(), c.Nodes.CurrentNode(),
	), nil
}

// dispatchSlot implements §6's `slot insert/remove/enable/disable/
// configure/list/status`.
func (c *Context) dispatchSlot(args []string) (string, error) {
	if len(args) == 0 {
		return "", nkerrors.Invalid("slot requires a subcommand", nil)
	}
	switch args[0] {
	case "insert":
		if len(args) != 3 {
			return "", nkerrors.Invalid("slot insert requires a slot id and a strategy name", nil)
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return "", nkerrors.Invalid("invalid slot id", map[string]interface{}{"slot": args[1]})
		}
		if err := c.Scheduler.Insert(id, args[2]); err != nil {
			return "", err
		}
		return "OK", nil
	case "remove":
		return c.slotIDCmd(args[1:], c.Scheduler.Remove)
	case "enable":
		return c.slotIDCmd(args[1:], c.Scheduler.Enable)
	case "disable":
		return c.slotIDCmd(args[1:], c.Scheduler.Disable)
	case "configure":
		if len(args) != 4 {
			return "", nkerrors.Invalid("slot configure requires a slot id, a key, and a value", nil)
		}
		id, err1 := strconv.Atoi(args[1])
		value, err2 := strconv.ParseInt(args[3], 10, 64)
		if err1 != nil || err2 != nil {
			return "", nkerrors.Invalid("invalid slot configure arguments", map[string]interface{}{"slot": args[1], "value": args[3]})
		}
		if err := c.Scheduler.Configure(id, args[2], value); err != nil {
			return "", err
		}
		return "OK", nil
	case "list":
		return c.slotListCmd(), nil
	case "status":
		return c.slotStatusCmd(args[1:])
	default:
		return "", nkerrors.Invalid("unknown subcommand", map[string]interface{}{"verb": "slot " + args[0]})
	}
}

func (c *Context) slotIDCmd(args []string, fn func(int) error) (string, error) {
	if len(args) != 1 {
		return "", nkerrors.Invalid("expected a single slot id", nil)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return "", nkerrors.Invalid("invalid slot id", map[string]interface{}{"slot": args[0]})
	}
	if err := fn(id); err != nil {
		return "", err
	}
	return "OK", nil
}

func (c *Context) slotListCmd() string {
	statuses := c.Scheduler.List()
	lines := make([]string, len(statuses))
	for i, st := range statuses {
		lines[i] = fmt.Sprintf("%d:%s(enabled=%t execs=%d failures=%d)", st.Slot, st.Name, st.Enabled, st.ExecCount, st.FailureCount)
	}
	return strings.Join(lines, " ")
}

func (c *Context) slotStatusCmd(args []string) (string, error) {
	if len(args) != 1 {
		return "", nkerrors.Invalid("slot status requires a slot id", nil)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return "", nkerrors.Invalid("invalid slot id", map[string]interface{}{"slot": args[0]})
	}
	st, err := c.Scheduler.Status(id)
	if err != nil {
		return "", err
	}
	if !st.Occupied {
		return "", nkerrors.NotFound("slot is empty", map[string]interface{}{"slot": id})
	}
	return fmt.Sprintf(
		"slot=%d name=%s enabled=%t priority=%d interval=%s execs=%d failures=%d total_time=%s",
		st.Slot, st.Name, st.Enabled, st.Priority, st.Interval, st.ExecCount, st.FailureCount, time.Duration(st.TotalTimeNS),
	), nil
}
