package config

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultIDColumn is the transfer-id column assumed when a sheet mapping
// does not name one.
const DefaultIDColumn = "transfer_id"

// SheetTarget maps one workbook sheet to its destination table.
type SheetTarget struct {
	Table    string
	IDColumn string
}

// Config holds the full run configuration. It is built once at process start
// and passed into every component; nothing reads the environment after that.
type Config struct {
	DBScheme   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	EmailSender    string
	EmailPassword  string
	RecipientEmail string
	SMTPHost       string
	SMTPPort       int

	ExcelPath string
	MapFile   string
	LogDir    string
	Schedule  string
	Debug     bool
	Verbose   bool

	// Sheets is keyed by upper-cased sheet name.
	Sheets map[string]SheetTarget
}

// FromEnv builds a Config from the environment, loading a .env file first
// when one is present.
func FromEnv() (*Config, error) {
	// Missing .env is fine, the variables may already be exported.
	_ = godotenv.Load()

	cfg := &Config{
		DBScheme:       envOr("DB_SCHEME", "postgres"),
		DBHost:         os.Getenv("DB_HOST"),
		DBPort:         os.Getenv("DB_PORT"),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         os.Getenv("DB_NAME"),
		EmailSender:    os.Getenv("EMAIL_SENDER"),
		EmailPassword:  os.Getenv("EMAIL_PASSWORD"),
		RecipientEmail: os.Getenv("RECIPIENT_EMAIL"),
		SMTPHost:       envOr("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:       587,
		ExcelPath:      os.Getenv("EXCEL_FILE_PATH"),
		Sheets:         make(map[string]SheetTarget),
	}

	if cfg.DBHost == "" || cfg.DBUser == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("incomplete database configuration: DB_HOST, DB_USER and DB_NAME are required")
	}
	if cfg.DBPort == "" {
		switch cfg.DBScheme {
		case "mysql":
			cfg.DBPort = "3306"
		default:
			cfg.DBPort = "5432"
		}
	}
	return cfg, nil
}

// DatabaseURL assembles the connection URL from the discrete credentials.
// The password is escaped so special characters survive the round trip.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("%s://%s:%s@%s:%s/%s",
		c.DBScheme, c.DBUser, url.QueryEscape(c.DBPassword), c.DBHost, c.DBPort, c.DBName)
}

// LoadSheetMap reads the sheet-to-table mapping file. One mapping per line:
//
//	SHEETNAME: schema.table
//	SHEETNAME: schema.table, id_column
//
// Blank lines and lines starting with '#' are skipped.
func LoadSheetMap(cfg *Config, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to read sheet map file: %w", err)
	}
	defer file.Close()

	if cfg.Sheets == nil {
		cfg.Sheets = make(map[string]SheetTarget)
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid sheet map line format (expected 'sheet: table[, id_column]'): %s", line)
		}

		sheetName := strings.ToUpper(strings.TrimSpace(parts[0]))
		if sheetName == "" {
			return fmt.Errorf("empty sheet name in map line: %s", line)
		}

		target := SheetTarget{IDColumn: DefaultIDColumn}
		fields := strings.SplitN(parts[1], ",", 2)
		target.Table = strings.TrimSpace(fields[0])
		if target.Table == "" {
			return fmt.Errorf("empty table name in map line: %s", line)
		}
		if len(fields) == 2 {
			if col := strings.TrimSpace(fields[1]); col != "" {
				target.IDColumn = col
			}
		}

		cfg.Sheets[sheetName] = target
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading sheet map file: %w", err)
	}

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
