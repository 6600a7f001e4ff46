package database

import (
	"github.com/barazo-forum/barazo-api-sub002/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	account *models.AccountModel
	content *models.ContentModel
	trust   *models.TrustModel
	queue   *models.QueueModel
	cluster *models.ClusterModel
	pds     *models.PDSModel
	flag    *models.FlagModel
	setting *models.SettingModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		account: models.NewAccount(db, logger),
		content: models.NewContent(db, logger),
		trust:   models.NewTrust(db, logger),
		queue:   models.NewQueue(db, logger),
		cluster: models.NewCluster(db, logger),
		pds:     models.NewPDS(db, logger),
		flag:    models.NewFlag(db, logger),
		setting: models.NewSetting(db, logger),
	}
}

// Account returns the account model repository.
func (r *Repository) Account() *models.AccountModel {
	return r.account
}

// Content returns the content model repository.
func (r *Repository) Content() *models.ContentModel {
	return r.content
}

// Trust returns the trust model repository.
func (r *Repository) Trust() *models.TrustModel {
	return r.trust
}

// Queue returns the moderation queue model repository.
func (r *Repository) Queue() *models.QueueModel {
	return r.queue
}

// Cluster returns the sybil cluster model repository.
func (r *Repository) Cluster() *models.ClusterModel {
	return r.cluster
}

// PDS returns the pds trust factor model repository.
func (r *Repository) PDS() *models.PDSModel {
	return r.pds
}

// Flag returns the behavioral flag model repository.
func (r *Repository) Flag() *models.FlagModel {
	return r.flag
}

// Setting returns the community setting model repository.
func (r *Repository) Setting() *models.SettingModel {
	return r.setting
}
