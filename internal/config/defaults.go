package config

const (
	defaultLogDir            = "~/.local/share/grd/logs"
	defaultStateDir          = "~/.local/share/grd"
	defaultDeliveriesDir     = "1.ENTREGAS"
	defaultAPPrefix          = "1.AP - Entrega-"
	defaultPEPrefix          = "2.PE - Entrega-"
	defaultObsoleteSuffix    = "-OBSOLETO"
	defaultSnapshotFile      = "controle_entregas.json"
	defaultLedgerFilePattern = "GRD_ENTREGAS_%s.xlsx"
	defaultManifestFile      = "LISTA_OBSOLETOS.txt"
	defaultLockFile          = ".grd.lock"
	defaultLedgerSheet       = "GRD"
	defaultLedgerTitle       = "GUIA DE REMESSA DE DOCUMENTOS"
	defaultLedgerDescription = "Controle de entregas e revisões de documentos"
	defaultRetryAttempts     = 3
	defaultRetryInitialMS    = 200
	defaultRetryMaxMS        = 2000
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Delivery: Delivery{
			DeliveriesDir:     defaultDeliveriesDir,
			APPrefix:          defaultAPPrefix,
			PEPrefix:          defaultPEPrefix,
			ObsoleteSuffix:    defaultObsoleteSuffix,
			SnapshotFile:      defaultSnapshotFile,
			LedgerFilePattern: defaultLedgerFilePattern,
			ManifestFile:      defaultManifestFile,
			LockFile:          defaultLockFile,
		},
		Ledger: Ledger{
			Sheet:       defaultLedgerSheet,
			Title:       defaultLedgerTitle,
			Description: defaultLedgerDescription,
		},
		Retry: Retry{
			Attempts:         defaultRetryAttempts,
			InitialBackoffMS: defaultRetryInitialMS,
			MaxBackoffMS:     defaultRetryMaxMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
