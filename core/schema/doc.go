/*
Package schema defines the declarative descriptor of an ERP module.

A module is one business entity's CRUD slice (employees, relatives,
departments). Its descriptor names the route it lives under, the columns its
list view shows, and the sections its detail and form views render.

# Module Definition

A minimal module definition in YAML:

	module: nhan_su
	title: Nhân sự
	route_path: /hanh-chinh/nhan-su
	breadcrumb:
	  parent_label: Hành chính

	columns:
	  - id: ma_nhan_vien
	    header: Mã NV
	    filterable: true
	  - id: trang_thai
	    header: Trạng thái
	    filter: multi_select
	    meta:
	      enum_config:
	        dang_lam: { label: Đang làm, color: green }

	sections:
	  - title: Thông tin chung
	    fields:
	      - { name: ho_ten, label: Họ tên, type: text, required: true }
	      - { name: avatar, label: Ảnh, type: custom, component: avatar }

# Field Types

  - text, textarea:            free text
  - number, currency, percentage: numeric input
  - email, phone:              validated strings
  - date, datetime:            calendar values
  - select, multiselect:       one/many of the declared options
  - checkbox:                  boolean
  - custom:                    rendered by a named component

# Parsing

	mod, err := schema.ParseFile("modules/nhan_su.yaml")
	modules, err := schema.ParseDir("modules/")

All modules are validated on parse. Invalid modules return an error.
*/
package schema
