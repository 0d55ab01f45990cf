package database

const (
	// User queries
	queryInsertUser = `
		INSERT INTO users (id, name, top_up_amount, version) VALUES (?, ?, '0', 1)`

	queryGetUsers = `
		SELECT id, name, top_up_amount, version, created_at, updated_at
		FROM users
		ORDER BY created_at`

	queryGetUserById = `
		SELECT id, name, top_up_amount, version, created_at, updated_at
		FROM users
		WHERE id = ?`

	queryGetUserBalance = `
		SELECT top_up_amount, version
		FROM users
		WHERE id = ?`

	queryUpdateUserBalance = `
		UPDATE users
		SET top_up_amount = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?`

	// Address queries
	queryInsertAddress = `
		INSERT INTO addresses (id, user_id, network, address)
		VALUES (?, ?, ?, ?)`

	queryGetUserAddresses = `
		SELECT id, user_id, network, address, created_at
		FROM addresses
		WHERE user_id = ?
		ORDER BY network`

	// Deposit queries
	queryInsertDeposit = `
		INSERT INTO deposits (id, tx_id, user_id, network, token_name, amount, vout)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetDepositTxIds = `
		SELECT tx_id, network, token_name
		FROM deposits
		WHERE user_id = ?`

	queryGetUncreditedDeposits = `
		SELECT id, tx_id, user_id, network, token_name, amount, vout, credited, credited_at, recorded_at
		FROM deposits
		WHERE user_id = ? AND credited = 0
		ORDER BY recorded_at`

	queryMarkDepositCredited = `
		UPDATE deposits
		SET credited = 1, credited_at = CURRENT_TIMESTAMP
		WHERE id = ? AND credited = 0`

	// Credit event queries
	queryInsertCreditEvent = `
		INSERT INTO credit_events (id, user_id, fiat_amount, breakdown, balance_before, balance_after)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetCreditEvents = `
		SELECT id, user_id, fiat_amount, breakdown, balance_before, balance_after, created_at
		FROM credit_events
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`
)
