package sqlstore

import "github.com/relaywatch/go-relaywatch/core"

var (
	_ core.CredentialStore        = (*CredentialStore)(nil)
	_ core.OutcomeStore           = (*OutcomeStore)(nil)
	_ core.UsageStore             = (*UsageStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
