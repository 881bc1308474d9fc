package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
)

// Response cache log prefixes
const (
	LogCacheInit    = Blue + "[Cache:Init]" + Reset
	LogCache        = Blue + "[Cache]" + Reset
	LogCacheBackup  = Blue + "[Cache:Backup]" + Reset
	LogCacheClear   = Blue + "[Cache:Clear]" + Reset
	LogCacheBackups = Blue + "[Cache:Backups]" + Reset
	LogCacheRestore = Blue + "[Cache:Restore]" + Reset
)

// Local database log prefixes
const (
	LogDatabase        = Green + "[Database]" + Reset
	LogDatabaseMigrate = Green + "[Database:Migrate]" + Reset
	LogDatabaseBackup  = Green + "[Database:Backup]" + Reset
	LogDatabaseRestore = Green + "[Database:Restore]" + Reset
	LogLiveQuery       = Cyan + "[LiveQuery]" + Reset
)

// Catalog log prefixes
const (
	LogInnertube = Purple + "[Innertube]" + Reset
	LogPager     = Cyan + "[Pager]" + Reset
	LogPlayer    = Purple + "[Player]" + Reset
)

// Cache sync log prefixes
const (
	LogSync = Yellow + "[Sync]" + Reset
)

// Rate limiting log prefixes
const (
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogAPIKey    = Purple + "[APIKey]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}

// Server/Init log prefixes
const (
	LogServer = Green + "[Server]" + Reset
	LogConfig = Cyan + "[Config]" + Reset
	LogStats  = Blue + "[Stats]" + Reset
	LogHTTP   = Cyan + "[HTTP]" + Reset
)

// Notification log prefixes
const (
	LogNotifier = Cyan + "[Notifier]" + Reset
)
