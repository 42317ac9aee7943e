package database

// Schemas, one per service.  Every identifier column is a CHAR(36) UUID;
// cross-service references are plain columns with no foreign key because
// the referenced row lives in another service's database.

var IdentitySchema = []string{
	`CREATE TABLE IF NOT EXISTS identities (
		id CHAR(36) NOT NULL PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL,
		display_name VARCHAR(255) NOT NULL DEFAULT '',
		city VARCHAR(128) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE KEY ux_identities_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var CatalogSchema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id CHAR(36) NOT NULL PRIMARY KEY,
		name VARCHAR(128) NOT NULL,
		icon VARCHAR(255) NOT NULL DEFAULT '',
		description TEXT,
		created_at DATETIME NOT NULL,
		UNIQUE KEY ux_categories_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS services (
		id CHAR(36) NOT NULL PRIMARY KEY,
		category_id CHAR(36) NOT NULL,
		name VARCHAR(128) NOT NULL,
		description TEXT,
		price_cents BIGINT NOT NULL DEFAULT 0,
		icon VARCHAR(255) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		KEY ix_services_category (category_id),
		CONSTRAINT fk_services_category FOREIGN KEY (category_id) REFERENCES categories (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var ProviderSchema = []string{
	`CREATE TABLE IF NOT EXISTS provider_profiles (
		id CHAR(36) NOT NULL PRIMARY KEY,
		identity_id CHAR(36) NOT NULL,
		display_name VARCHAR(255) NOT NULL DEFAULT '',
		category_id CHAR(36) NOT NULL,
		service_id CHAR(36) NOT NULL,
		experience_years INT NOT NULL DEFAULT 0,
		city VARCHAR(128) NOT NULL DEFAULT '',
		profile_image VARCHAR(512) NOT NULL DEFAULT '',
		certificate_image VARCHAR(512) NOT NULL DEFAULT '',
		available TINYINT(1) NOT NULL DEFAULT 1,
		verified TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE KEY ux_provider_profiles_identity (identity_id),
		KEY ix_provider_profiles_service (service_id),
		KEY ix_provider_profiles_category (category_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var DemandSchema = []string{
	`CREATE TABLE IF NOT EXISTS demands (
		id CHAR(36) NOT NULL PRIMARY KEY,
		client_identity_id CHAR(36) NOT NULL,
		provider_identity_id CHAR(36) NOT NULL,
		service_id CHAR(36) NOT NULL,
		message TEXT,
		status VARCHAR(16) NOT NULL,
		location_lat DOUBLE NULL,
		location_lng DOUBLE NULL,
		location_address VARCHAR(512) NULL,
		location_confirmed_by VARCHAR(16) NULL,
		location_confirmed_at DATETIME NULL,
		appointment_date DATETIME NULL,
		version INT NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		KEY ix_demands_client (client_identity_id, created_at),
		KEY ix_demands_provider (provider_identity_id, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var MessageSchema = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		seq BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		id CHAR(36) NOT NULL,
		demand_id CHAR(36) NOT NULL,
		from_identity_id CHAR(36) NOT NULL,
		to_identity_id CHAR(36) NOT NULL,
		content VARCHAR(2000) NOT NULL,
		is_read TINYINT(1) NOT NULL DEFAULT 0,
		seed_key CHAR(36) NULL,
		created_at DATETIME(3) NOT NULL,
		UNIQUE KEY ux_messages_id (id),
		UNIQUE KEY ux_messages_seed (seed_key),
		KEY ix_messages_demand (demand_id, seq),
		KEY ix_messages_to_read (to_identity_id, is_read),
		KEY ix_messages_from (from_identity_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}
