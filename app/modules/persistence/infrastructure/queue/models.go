package persistencequeue

// AutoBackupJob writes a full backup document into Dir and keeps the newest
// Keep files. Keep <= 0 keeps everything.
type AutoBackupJob struct {
	Dir  string `json:"dir"`
	Keep int    `json:"keep"`
}

// Kind returns the job type identifier for River
func (AutoBackupJob) Kind() string { return "auto_backup" }

// BackupFilePrefix and BackupFileSuffix frame every auto backup file name.
const (
	BackupFilePrefix = "matchops-backup-"
	BackupFileSuffix = ".json"
)
