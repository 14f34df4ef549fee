package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration parameters read from environment variables.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Directories holding the per-user model artifacts and user uploads.
	ModelDir  string `envconfig:"MODEL_DIR" default:"data/classifiers"`
	UploadDir string `envconfig:"UPLOAD_DIR" default:"data/uploads"`

	// Retraining trigger. A user is retrained once their interaction count
	// since the last training reaches
	// min(absolute, percent * lifetime interactions).
	RetrainThresholdAbsolute int     `envconfig:"RETRAIN_THRESHOLD_ABSOLUTE" default:"10"`
	RetrainThresholdPercent  float64 `envconfig:"RETRAIN_THRESHOLD_PERCENT" default:"0.1"`

	// Training aborts below this many samples.
	MinTrainingSamples int `envconfig:"MIN_TRAINING_SAMPLES" default:"10"`

	// Recommendation materialization.
	RankingBatchSize        int `envconfig:"RANKING_BATCH_SIZE" default:"10000"`
	RecommendationsPerBatch int `envconfig:"RECOMMENDATIONS_PER_BATCH" default:"100"`
	RescoreWindowDays       int `envconfig:"RESCORE_WINDOW_DAYS" default:"30"`
	InactiveUserDays        int `envconfig:"INACTIVE_USER_DAYS" default:"365"`

	// Upstream sources.
	EnabledSources   string        `envconfig:"ENABLED_SOURCES" default:"pubmed,arxiv,biorxiv"`
	PubMedBaseURL    string        `envconfig:"PUBMED_BASE_URL" default:"https://eutils.ncbi.nlm.nih.gov/entrez/eutils"`
	PubMedAPIKey     string        `envconfig:"PUBMED_API_KEY"`
	PubMedTool       string        `envconfig:"PUBMED_TOOL" default:"scholarfeed"`
	PubMedEmail      string        `envconfig:"PUBMED_EMAIL"`
	ArxivBaseURL     string        `envconfig:"ARXIV_BASE_URL" default:"http://export.arxiv.org/api/query"`
	BiorxivFeedURL   string        `envconfig:"BIORXIV_FEED_URL" default:"http://connect.biorxiv.org/biorxiv_xml.php"`
	BiorxivSubjects  string        `envconfig:"BIORXIV_SUBJECTS" default:"all"`
	FetchRetries     int           `envconfig:"FETCH_RETRIES" default:"3"`
	FetchRetryWait   time.Duration `envconfig:"FETCH_RETRY_WAIT" default:"10s"`
	ExhaustiveBudget time.Duration `envconfig:"EXHAUSTIVE_BUDGET" default:"10m"`

	// Cron schedules.
	FetchCronSchedule   string `envconfig:"FETCH_CRON_SCHEDULE" default:"0 4 * * *"`
	RetrainCronSchedule string `envconfig:"RETRAIN_CRON_SCHEDULE" default:"0 5 * * *"`

	// Optional S3 target for model artifact backups (cmd/backup).
	BackupS3Key    string `envconfig:"BACKUP_S3_KEY"`
	BackupS3Secret string `envconfig:"BACKUP_S3_SECRET"`
	BackupS3URL    string `envconfig:"BACKUP_S3_URL"`
	BackupS3Region string `envconfig:"BACKUP_S3_REGION"`
	BackupS3Bucket string `envconfig:"BACKUP_S3_BUCKET"`
}

// DSN returns the data source name for the PostgreSQL connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if c.MinTrainingSamples <= 0 {
		return nil, fmt.Errorf("MIN_TRAINING_SAMPLES must be positive, got %d", c.MinTrainingSamples)
	}
	return &c, nil
}
