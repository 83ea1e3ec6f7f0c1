package engine

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// reservedAnywhere rejects a site name if any of these words appear
// anywhere inside it. Mirrors the server's impersonation guard.
var reservedAnywhere = mapset.NewSet(
	"admin",
	"administrator",
	"moderator",
	"system",
	"root",
	"superuser",
	"sysadmin",
	"webmaster",
	"postmaster",
	"hostmaster",
	"staff",
	"support",
	"official",
	"security",
	"billing",
	"abuse",
	"noreply",
	"mailer-daemon",
	"sitebox",
	"internal",
)

// reservedExact rejects a site name equal to any server route or
// infrastructure name. Kept in sync with the server's routing table.
var reservedExact = mapset.NewSet(
	"about", "abuse-reports", "access", "account", "accounts", "activate",
	"activity", "add", "address", "ads", "affiliate", "affiliates", "ajax",
	"alerts", "analytics", "android", "announce", "announcements", "api",
	"apidocs", "app", "apps", "archive", "archives", "assets", "atom",
	"auth", "authentication", "avatar", "avatars", "backup", "backups",
	"banner", "banners", "beta", "blog", "blogs", "board", "bookmark",
	"bookmarks", "bot", "bots", "broadcast", "business", "cache", "calendar",
	"callback", "campaign", "cancel", "captcha", "career", "careers", "cart",
	"categories", "category", "cdn", "changelog", "chat", "checkout", "client",
	"clients", "cloud", "code", "comment", "comments", "community", "compare",
	"config", "configuration", "connect", "contact", "contact-us", "content",
	"contest", "cookies", "copyright", "create", "css", "dashboard", "data",
	"database", "deals", "debug", "delete", "demo", "design", "dev", "devel",
	"developer", "developers", "devices", "diagnostics", "dir", "directory",
	"discover", "discuss", "dmca", "doc", "docs", "documentation", "domain",
	"domains", "download", "downloads", "edit", "editor", "email", "embed",
	"enterprise", "error", "errors", "event", "events", "explore", "export",
	"faq", "faqs", "favicon", "favorites", "feed", "feedback", "feeds",
	"file", "files", "filter", "follow", "followers", "following", "font",
	"fonts", "forgot", "forgot-password", "form", "forms", "forum", "forums",
	"friend", "friends", "ftp", "gadget", "gadgets", "gallery", "get",
	"gettingstarted", "gift", "gifts", "gist", "github", "goto", "graph",
	"group", "groups", "guest", "guests", "guide", "guidelines", "guides",
	"health", "healthcheck", "help", "helpcenter", "homepage",
	"host", "hosting", "hostname", "hosts", "howto", "htaccess", "html",
	"http", "httpd", "https", "icon", "icons", "image", "images", "imap",
	"img", "import", "inbox", "index", "info", "information", "insights",
	"install", "intranet", "invitations", "invite", "invoice", "invoices",
	"ios", "ipad", "iphone", "irc", "issue", "issues", "item", "items",
	"javascript", "job", "jobs", "join", "js", "json", "keybase", "knowledgebase",
	"language", "languages", "legal", "license", "licenses", "link", "links",
	"list", "lists", "localhost", "log", "login", "logout", "logs", "mail",
	"mailing", "maintenance", "manage", "manager", "manifest", "map", "maps",
	"marketing", "marketplace", "media", "member", "members", "mention",
	"mentions", "merch", "message", "messages", "messenger", "metrics",
	"mobile", "monitor", "monitoring", "msg", "music", "mx", "my", "name",
	"named", "network", "new", "news", "newsletter", "newsletters", "nil",
	"node", "nodes", "none", "notes", "notification", "notifications",
	"null", "oauth", "oauth2", "offer", "offers", "onboarding", "online",
	"openid", "order", "orders", "org", "organization", "organizations",
	"overview", "owner", "owners", "page", "pages", "panel", "partner",
	"partners", "password", "passwords", "pay", "payment", "payments",
	"photo", "photos", "ping", "pixel", "plan", "plans", "plugin", "plugins",
	"policies", "policy", "pop", "pop3", "popular", "portal", "portfolio",
	"post", "posts", "preferences", "premium", "press", "price", "pricing",
	"privacy", "private", "pro", "product", "products", "profile", "profiles",
	"project", "projects", "promo", "public", "purchase", "push", "query",
	"random", "ranking", "read", "readme", "recent", "recover", "redirect",
	"register", "registration", "release", "releases", "remove", "render",
	"report", "reports", "repositories", "repository", "request", "requests",
	"reset", "reset-password", "resources", "rest", "retail", "robots",
	"rss", "rules", "sales", "save", "schema", "script", "scripts", "sdk",
	"search", "secure", "server", "servers", "service", "services",
	"session", "sessions", "setting", "settings", "setup", "share", "shop",
	"shopping", "signin", "signout", "signup", "sitemap", "sites",
	"smtp", "source", "sql", "src", "ssh", "ssl", "stage", "staging",
	"start", "stat", "static", "statistics", "stats", "status", "statuses",
	"store", "stores", "stories", "story", "stream", "stripe", "style",
	"styleguide", "styles", "stylesheet", "stylesheets", "subdomain",
	"subscribe", "subscription", "subscriptions", "survey", "surveys",
	"svn", "sync", "tag", "tags", "talk", "team", "teams", "template",
	"templates", "terms", "terms-of-service", "test", "testing", "tests",
	"theme", "themes", "ticket", "tickets", "tmp", "todo", "token", "tokens",
	"tools", "top", "tos", "tour", "training", "translate", "translations",
	"trending", "trial", "true", "tutorial", "tutorials", "tv", "undefined",
	"unfollow", "unsubscribe", "update", "updates", "upgrade", "upload",
	"uploads", "url", "usage", "user", "username", "users", "validate",
	"verify", "version", "versions", "video", "videos", "view", "views",
	"vpn", "web", "webhook", "webhooks", "webmail", "website", "websites",
	"welcome", "widget", "widgets", "wiki", "win", "wishlist", "work",
	"workshop", "ww", "www", "wwww", "xml", "xmpp", "yaml", "yml", "zone",
)

// windowsReserved device names are rejected for upload assets.
var windowsReserved = mapset.NewSet(
	"CON", "PRN", "AUX", "NUL",
	"COM1", "COM2", "COM3", "COM4", "COM5", "COM6", "COM7", "COM8", "COM9",
	"LPT1", "LPT2", "LPT3", "LPT4", "LPT5", "LPT6", "LPT7", "LPT8", "LPT9",
)
