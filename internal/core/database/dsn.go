package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// mysqlDSN 接受三种写法：go-sql-driver 原生 DSN（原样返回）、mysql://... 、jdbc:mysql://...
// user/pass 非空时覆盖连接串里的账号
func mysqlDSN(input, user, pass string) (string, error) {
	in := strings.TrimPrefix(strings.TrimSpace(input), "jdbc:")
	if !strings.HasPrefix(in, "mysql://") {
		return in, nil
	}
	u, err := url.Parse(in)
	if err != nil {
		return "", err
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true
	cfg.Params = map[string]string{}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}

	for k, vs := range u.Query() {
		v := vs[len(vs)-1]
		switch k {
		case "user":
			cfg.User = v
		case "password":
			cfg.Passwd = v
		case "characterEncoding", "charset":
			cfg.Params["charset"] = v
		case "serverTimezone":
			loc, err := time.LoadLocation(v)
			if err != nil {
				return "", fmt.Errorf("serverTimezone %q: %w", v, err)
			}
			cfg.Loc = loc
		case "useSSL":
			cfg.TLSConfig = jdbcTLS(v)
		case "useUnicode", "zeroDateTimeBehavior":
			// JDBC 专用，驱动不认识
		default:
			cfg.Params[k] = v
		}
	}
	if cfg.Params["charset"] == "" {
		cfg.Params["charset"] = "utf8mb4"
	}
	if user != "" {
		cfg.User = user
	}
	if pass != "" {
		cfg.Passwd = pass
	}
	return cfg.FormatDSN(), nil
}

func jdbcTLS(v string) string {
	switch strings.ToLower(v) {
	case "true", "1":
		return "true"
	case "skip-verify", "preferred":
		return strings.ToLower(v)
	}
	return "false"
}

// maskDSN 日志里隐藏密码
func maskDSN(dsn string) string {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil || cfg.Passwd == "" {
		return dsn
	}
	cfg.Passwd = "****"
	return cfg.FormatDSN()
}
