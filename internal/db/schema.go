package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tables the service owns. Statements are idempotent so
// startup is safe against an already-provisioned database.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`create table if not exists restaurants (
			id bigint generated always as identity primary key,
			code text not null unique,
			name text not null,
			currency text not null default 'INR',
			timezone text not null default 'Asia/Kolkata',
			is_active boolean not null default true,
			created_at timestamptz not null default now(),
			updated_at timestamptz not null default now()
		)`,
		`create table if not exists staff (
			id bigint generated always as identity primary key,
			restaurant_id bigint not null references restaurants(id),
			name text not null,
			email text,
			role text not null,
			is_active boolean not null default true,
			created_at timestamptz not null default now(),
			updated_at timestamptz not null default now()
		)`,
		`create table if not exists areas (
			id bigint generated always as identity primary key,
			restaurant_id bigint not null references restaurants(id),
			name text not null,
			created_at timestamptz not null default now()
		)`,
		`create table if not exists restaurant_tables (
			id bigint generated always as identity primary key,
			restaurant_id bigint not null references restaurants(id),
			area_id bigint references areas(id),
			table_number text not null,
			capacity int not null default 2,
			is_active boolean not null default true,
			created_at timestamptz not null default now(),
			unique (restaurant_id, table_number)
		)`,
		`create table if not exists menu_items (
			id bigint generated always as identity primary key,
			restaurant_id bigint not null references restaurants(id),
			name text not null,
			price numeric(12,2) not null,
			is_available boolean not null default true,
			deleted_at timestamptz,
			created_at timestamptz not null default now(),
			updated_at timestamptz not null default now()
		)`,
		`create table if not exists kots (
			id bigint generated always as identity primary key,
			restaurant_id bigint not null references restaurants(id),
			kot_number bigint not null,
			table_id bigint references restaurant_tables(id),
			status text not null default 'PENDING',
			order_id bigint,
			notes text,
			created_at timestamptz not null default now(),
			updated_at timestamptz not null default now(),
			unique (restaurant_id, kot_number)
		)`,
		`create table if not exists kot_items (
			id bigint generated always as identity primary key,
			kot_id bigint not null references kots(id),
			menu_item_id bigint references menu_items(id),
			item_name text not null,
			unit_price numeric(12,2) not null,
			quantity int not null,
			notes text
		)`,
		`create table if not exists orders (
			id bigint generated always as identity primary key,
			restaurant_id bigint not null references restaurants(id),
			kot_id bigint references kots(id),
			order_number text not null,
			order_type text not null default 'DINE_IN',
			table_id bigint references restaurant_tables(id),
			customer_name text,
			subtotal numeric(12,2) not null default 0,
			tax_amount numeric(12,2) not null default 0,
			total_amount numeric(12,2) not null default 0,
			status text not null default 'PENDING',
			payment_status text not null default 'PENDING',
			notes text,
			placed_at timestamptz not null default now(),
			updated_at timestamptz not null default now(),
			unique (restaurant_id, order_number)
		)`,
		`create table if not exists order_items (
			id bigint generated always as identity primary key,
			order_id bigint not null references orders(id),
			menu_item_id bigint references menu_items(id),
			item_name text not null,
			unit_price numeric(12,2) not null,
			quantity int not null,
			line_total numeric(12,2) not null,
			notes text
		)`,
		`create table if not exists payments (
			id bigint generated always as identity primary key,
			order_id bigint not null references orders(id),
			amount numeric(12,2) not null,
			method text not null,
			created_at timestamptz not null default now()
		)`,
		`create table if not exists reservations (
			id bigint generated always as identity primary key,
			restaurant_id bigint not null references restaurants(id),
			table_id bigint references restaurant_tables(id),
			reservation_date date not null,
			time_slot text not null,
			party_size int not null default 2,
			customer_name text not null,
			customer_phone text,
			customer_email text,
			special_request text,
			status text not null default 'PENDING',
			created_at timestamptz not null default now(),
			updated_at timestamptz not null default now()
		)`,
		// Closes the check-then-insert race on a slot: two concurrent bookings for
		// the same (table, date, slot) cannot both hold a live reservation.
		`create unique index if not exists reservations_live_slot_uq
			on reservations (restaurant_id, table_id, reservation_date, time_slot)
			where table_id is not null and status in ('PENDING','CONFIRMED','CHECKED_IN')`,
		`create table if not exists waiter_requests (
			id bigint generated always as identity primary key,
			restaurant_id bigint not null references restaurants(id),
			table_id bigint not null references restaurant_tables(id),
			request_type text not null,
			notes text,
			status text not null default 'OPEN',
			created_at timestamptz not null default now(),
			attended_at timestamptz
		)`,
		`create table if not exists restaurant_counters (
			restaurant_id bigint not null references restaurants(id),
			name text not null,
			value bigint not null default 0,
			primary key (restaurant_id, name)
		)`,
		`create table if not exists notifications (
			id bigint generated always as identity primary key,
			restaurant_id bigint not null,
			event_type text not null,
			payload jsonb not null,
			created_at timestamptz not null default now()
		)`,
	}

	for _, statement := range statements {
		if _, err := pool.Exec(ctx, statement); err != nil {
			return err
		}
	}
	return nil
}

// ReservationSlotIndexName is matched against unique-violation errors to map
// them onto a slot-conflict response.
const ReservationSlotIndexName = "reservations_live_slot_uq"
