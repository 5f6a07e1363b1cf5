package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "CCASS Shareholding Tracker"
	AppVersion = "0.3.0"

	// Depository portal
	PortalSearchURL = "https://www3.hkexnews.hk/sdw/search/searchsdw.aspx"

	// Portal date format entered into and read back from the search form
	PortalDateLayout = "2006/01/02"

	// Alert text the portal shows for a security it cannot serve
	UnavailableAlertText = "does not exist OR not available for enquiry"

	// Empty-result message of the query entry point
	DataNotAvailableMessage = "Data not available. Please check stock code."

	// Rate Limiting
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 10

	// Network Timeouts
	DefaultReadyTimeout = 10 * time.Second
	DefaultQueryTimeout = 10 * time.Second

	// File Paths (relative to the application home)
	DefaultDataDir      = "data"
	DefaultLogsDir      = "logs"
	DefaultExportsDir   = "data/exports"
	DefaultDatabaseFile = "ccass.db"
	DefaultLogFile      = "ccass.log"
)
