package config

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// LoadLua evaluates a Lua configuration file and maps the returned table
// onto a Config layered over Default(). Editor hosts commonly configure
// plugins in Lua; the file must return a table, e.g.:
//
//	return {
//	    enabled = true,
//	    delay_ms = 300,
//	    exclude_patterns = { "*.log", "*.tmp" },
//	}
func LoadLua(path string) (Config, error) {
	cfg := Default()

	L := lua.NewState()
	defer L.Close()

	if err := L.DoFile(path); err != nil {
		return cfg, fmt.Errorf("evaluating config file %s: %w", path, err)
	}

	ret := L.Get(-1)
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return cfg, fmt.Errorf("config file %s must return a table, got %s", path, ret.Type())
	}

	cfg.Enabled = luaBool(tbl, "enabled", cfg.Enabled)
	cfg.ExcludePatterns = luaStrings(tbl, "exclude_patterns", cfg.ExcludePatterns)
	cfg.IncludePatterns = luaStrings(tbl, "include_patterns", cfg.IncludePatterns)
	cfg.MaxFileSizeBytes = luaInt64(tbl, "max_file_size_bytes", cfg.MaxFileSizeBytes)
	cfg.RestrictToDirs = luaStrings(tbl, "restrict_to_dirs", cfg.RestrictToDirs)
	cfg.DelayMs = int(luaInt64(tbl, "delay_ms", int64(cfg.DelayMs)))
	cfg.CommandTimeoutMs = int(luaInt64(tbl, "command_timeout_ms", int64(cfg.CommandTimeoutMs)))

	return cfg, cfg.Validate()
}

func luaBool(tbl *lua.LTable, key string, def bool) bool {
	if v, ok := tbl.RawGetString(key).(lua.LBool); ok {
		return bool(v)
	}
	return def
}

func luaInt64(tbl *lua.LTable, key string, def int64) int64 {
	if v, ok := tbl.RawGetString(key).(lua.LNumber); ok {
		return int64(v)
	}
	return def
}

func luaStrings(tbl *lua.LTable, key string, def []string) []string {
	inner, ok := tbl.RawGetString(key).(*lua.LTable)
	if !ok {
		return def
	}

	var out []string
	inner.ForEach(func(_, v lua.LValue) {
		if s, ok := v.(lua.LString); ok {
			out = append(out, string(s))
		}
	})
	return out
}
